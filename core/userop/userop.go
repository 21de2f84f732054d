// Package userop provides ERC-4337 user operation types and canonical hashing.
package userop

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EntryPointVersion 入口点合约协议版本
// v0.6 和 v0.7 的字段布局与哈希规则互不兼容，不可混用
type EntryPointVersion string

const (
	// EntryPointV06 入口点 v0.6 (initCode/paymasterAndData 布局)
	EntryPointV06 EntryPointVersion = "0.6"
	// EntryPointV07 入口点 v0.7 (factory/factoryData + 打包 gas 字段布局)
	EntryPointV07 EntryPointVersion = "0.7"
)

// 各版本入口点的规范部署地址
var (
	EntryPointV06Address = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	EntryPointV07Address = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")
)

// UserOperation 一次针对抽象账户的链下构建意图
// 同一结构覆盖两个入口点版本：v0.6 使用 InitCode/PaymasterAndData 原始字段，
// v0.7 使用 Factory/FactoryData 与拆分的 Paymaster 字段；哈希与 RPC 序列化
// 按版本分别处理
type UserOperation struct {
	Sender common.Address
	Nonce  *big.Int

	// 未部署账户的工厂字段 (v0.7)；v0.6 下两者拼接为 initCode
	Factory     common.Address
	FactoryData []byte

	CallData []byte

	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int

	// Paymaster 字段对本核心不透明，仅参与哈希与序列化
	Paymaster                     common.Address
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
	PaymasterData                 []byte

	Signature []byte
}

// HasFactory 是否携带工厂部署字段
func (op *UserOperation) HasFactory() bool {
	return op.Factory != (common.Address{})
}

// HasPaymaster 是否携带 paymaster
func (op *UserOperation) HasPaymaster() bool {
	return op.Paymaster != (common.Address{})
}

// InitCode 按 v0.6 约定拼接 factory 地址与工厂调用数据
func (op *UserOperation) InitCode() []byte {
	if !op.HasFactory() {
		return nil
	}
	out := make([]byte, 0, common.AddressLength+len(op.FactoryData))
	out = append(out, op.Factory.Bytes()...)
	out = append(out, op.FactoryData...)
	return out
}

// PaymasterAndData 按入口点版本拼接 paymaster 字段
// v0.6: paymaster ++ data；v0.7: paymaster ++ verGas(16) ++ postOpGas(16) ++ data
func (op *UserOperation) PaymasterAndData(version EntryPointVersion) []byte {
	if !op.HasPaymaster() {
		return nil
	}
	out := make([]byte, 0, common.AddressLength+32+len(op.PaymasterData))
	out = append(out, op.Paymaster.Bytes()...)
	if version == EntryPointV07 {
		out = append(out, leftPad16(op.PaymasterVerificationGasLimit)...)
		out = append(out, leftPad16(op.PaymasterPostOpGasLimit)...)
	}
	out = append(out, op.PaymasterData...)
	return out
}

// RPCFormat 生成提交给 bundler 的 JSON-RPC 参数对象
// 字段名与进制编码遵循 eth_sendUserOperation 的版本约定
func (op *UserOperation) RPCFormat(version EntryPointVersion) map[string]interface{} {
	out := map[string]interface{}{
		"sender":               op.Sender.Hex(),
		"nonce":                encodeBig(op.Nonce),
		"callData":             hexutil.Encode(op.CallData),
		"callGasLimit":         encodeBig(op.CallGasLimit),
		"verificationGasLimit": encodeBig(op.VerificationGasLimit),
		"preVerificationGas":   encodeBig(op.PreVerificationGas),
		"maxFeePerGas":         encodeBig(op.MaxFeePerGas),
		"maxPriorityFeePerGas": encodeBig(op.MaxPriorityFeePerGas),
		"signature":            hexutil.Encode(op.Signature),
	}

	switch version {
	case EntryPointV07:
		if op.HasFactory() {
			out["factory"] = op.Factory.Hex()
			out["factoryData"] = hexutil.Encode(op.FactoryData)
		}
		if op.HasPaymaster() {
			out["paymaster"] = op.Paymaster.Hex()
			out["paymasterVerificationGasLimit"] = encodeBig(op.PaymasterVerificationGasLimit)
			out["paymasterPostOpGasLimit"] = encodeBig(op.PaymasterPostOpGasLimit)
			out["paymasterData"] = hexutil.Encode(op.PaymasterData)
		}
	default:
		out["initCode"] = hexutil.Encode(op.InitCode())
		out["paymasterAndData"] = hexutil.Encode(op.PaymasterAndData(version))
	}

	return out
}

// Validate 检查哈希与提交所需字段是否齐备
func (op *UserOperation) Validate() error {
	if op.Sender == (common.Address{}) {
		return fmt.Errorf("user operation: sender is empty")
	}
	if op.Nonce == nil {
		return fmt.Errorf("user operation: nonce is nil")
	}
	return nil
}

func encodeBig(v *big.Int) string {
	if v == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(v)
}

// leftPad16 将整数左填充为16字节大端编码 (v0.7 打包 gas 字段用)
func leftPad16(v *big.Int) []byte {
	out := make([]byte, 16)
	if v != nil {
		v.FillBytes(out)
	}
	return out
}
