// Package account implements the Light smart account variant: address
// derivation, call encoding, signature composition, and operation signing.
package account

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kopy-kat/permissionless-go/core/userop"
)

// Version 账户合约版本标签（封闭枚举）
// 版本决定入口点协议版本、签名前缀与默认工厂地址；未知版本在构造期即失败，
// 绝不回退到默认编码
type Version string

const (
	// V1_1_0 入口点 v0.6 账户，签名不带前缀
	V1_1_0 Version = "1.1.0"
	// V2_0_0 入口点 v0.7 账户，签名带一字节 EOA 类型前缀 0x00
	V2_0_0 Version = "2.0.0"
)

// ErrUnsupportedVersion 不支持的账户版本
var ErrUnsupportedVersion = errors.New("unsupported account version")

// 各版本的默认工厂部署地址
var (
	factoryV110 = common.HexToAddress("0x00004EC70002a32400f8ae005A26081065620D20")
	factoryV200 = common.HexToAddress("0x0000000000400CdFef5E2714E63d8040b700BC24")
)

// sigTypeEOA v2 签名的 EOA 签名人类型前缀字节
const sigTypeEOA byte = 0x00

// Validate 校验版本标签
func (v Version) Validate() error {
	switch v {
	case V1_1_0, V2_0_0:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, string(v))
	}
}

// EntryPointVersion 账户版本对应的入口点协议版本
func (v Version) EntryPointVersion() userop.EntryPointVersion {
	if v == V2_0_0 {
		return userop.EntryPointV07
	}
	return userop.EntryPointV06
}

// EntryPointAddress 账户版本对应的入口点合约地址
func (v Version) EntryPointAddress() common.Address {
	if v == V2_0_0 {
		return userop.EntryPointV07Address
	}
	return userop.EntryPointV06Address
}

// DefaultFactory 账户版本对应的默认工厂地址
func (v Version) DefaultFactory() common.Address {
	if v == V2_0_0 {
		return factoryV200
	}
	return factoryV110
}

// domainVersion EIP-712 域中的版本字符串
func (v Version) domainVersion() string {
	if v == V2_0_0 {
		return "2"
	}
	return "1"
}

// tagSignature 按版本为原始签名加前缀
// v1 原样返回；v2 前置一字节 EOA 签名人类型标签
func (v Version) tagSignature(sig []byte) []byte {
	if v != V2_0_0 {
		return sig
	}
	out := make([]byte, 0, len(sig)+1)
	out = append(out, sigTypeEOA)
	out = append(out, sig...)
	return out
}
