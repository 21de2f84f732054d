// Package wallet provides owner key abstractions for smart account signing.
package wallet

import (
	"github.com/ethereum/go-ethereum/common"
)

// Owner 账户所有者签名器接口 - 统一的签名抽象
// 支持多种密钥来源：私钥/助记词/外部签名器
type Owner interface {
	// Address 所有者 EOA 地址
	Address() common.Address

	// SignHash 对32字节摘要做 secp256k1 签名
	// 返回 65 字节 [R || S || V]，V 为 27/28（链上 ecrecover 约定）
	SignHash(digest []byte) ([]byte, error)
}

// OwnerType 所有者签名器类型
type OwnerType string

const (
	OwnerTypePrivateKey OwnerType = "privatekey" // 原始私钥
	OwnerTypeMnemonic   OwnerType = "mnemonic"   // BIP39助记词
	OwnerTypeExternal   OwnerType = "external"   // 外部签名器(预留)
)
