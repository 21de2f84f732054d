package userop

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	typAddress, _ = abi.NewType("address", "", nil)
	typUint256, _ = abi.NewType("uint256", "", nil)
	typBytes32, _ = abi.NewType("bytes32", "", nil)

	// v0.6 内层打包：所有 gas 字段为独立 uint256
	packArgsV06 = abi.Arguments{
		{Name: "sender", Type: typAddress},
		{Name: "nonce", Type: typUint256},
		{Name: "hashInitCode", Type: typBytes32},
		{Name: "hashCallData", Type: typBytes32},
		{Name: "callGasLimit", Type: typUint256},
		{Name: "verificationGasLimit", Type: typUint256},
		{Name: "preVerificationGas", Type: typUint256},
		{Name: "maxFeePerGas", Type: typUint256},
		{Name: "maxPriorityFeePerGas", Type: typUint256},
		{Name: "hashPaymasterAndData", Type: typBytes32},
	}

	// v0.7 内层打包：gas 上限与费率各打包进一个 bytes32
	packArgsV07 = abi.Arguments{
		{Name: "sender", Type: typAddress},
		{Name: "nonce", Type: typUint256},
		{Name: "hashInitCode", Type: typBytes32},
		{Name: "hashCallData", Type: typBytes32},
		{Name: "accountGasLimits", Type: typBytes32},
		{Name: "preVerificationGas", Type: typUint256},
		{Name: "gasFees", Type: typBytes32},
		{Name: "hashPaymasterAndData", Type: typBytes32},
	}

	// 外层：keccak(内层) ++ 入口点地址 ++ 链ID
	envelopeArgs = abi.Arguments{
		{Name: "userOpHash", Type: typBytes32},
		{Name: "entryPoint", Type: typAddress},
		{Name: "chainId", Type: typUint256},
	}
)

// Hash 计算用户操作的规范哈希
// 计算时签名字段视为空；两个入口点版本的内层布局不同，严禁混用
func Hash(op *UserOperation, entryPoint common.Address, version EntryPointVersion, chainID *big.Int) (common.Hash, error) {
	if err := op.Validate(); err != nil {
		return common.Hash{}, err
	}
	if chainID == nil {
		return common.Hash{}, fmt.Errorf("user operation hash: chain id is nil")
	}

	var packed []byte
	var err error
	switch version {
	case EntryPointV06:
		packed, err = packArgsV06.Pack(
			op.Sender,
			op.Nonce,
			crypto.Keccak256Hash(op.InitCode()),
			crypto.Keccak256Hash(op.CallData),
			orZero(op.CallGasLimit),
			orZero(op.VerificationGasLimit),
			orZero(op.PreVerificationGas),
			orZero(op.MaxFeePerGas),
			orZero(op.MaxPriorityFeePerGas),
			crypto.Keccak256Hash(op.PaymasterAndData(version)),
		)
	case EntryPointV07:
		packed, err = packArgsV07.Pack(
			op.Sender,
			op.Nonce,
			crypto.Keccak256Hash(op.InitCode()),
			crypto.Keccak256Hash(op.CallData),
			op.AccountGasLimits(),
			orZero(op.PreVerificationGas),
			op.GasFees(),
			crypto.Keccak256Hash(op.PaymasterAndData(version)),
		)
	default:
		return common.Hash{}, fmt.Errorf("user operation hash: unknown entry point version %q", version)
	}
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack user operation: %w", err)
	}

	envelope, err := envelopeArgs.Pack(crypto.Keccak256Hash(packed), entryPoint, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack hash envelope: %w", err)
	}
	return crypto.Keccak256Hash(envelope), nil
}

// AccountGasLimits v0.7 打包字段：verificationGasLimit(16) ++ callGasLimit(16)
func (op *UserOperation) AccountGasLimits() [32]byte {
	var out [32]byte
	copy(out[:16], leftPad16(op.VerificationGasLimit))
	copy(out[16:], leftPad16(op.CallGasLimit))
	return out
}

// GasFees v0.7 打包字段：maxPriorityFeePerGas(16) ++ maxFeePerGas(16)
func (op *UserOperation) GasFees() [32]byte {
	var out [32]byte
	copy(out[:16], leftPad16(op.MaxPriorityFeePerGas))
	copy(out[16:], leftPad16(op.MaxFeePerGas))
	return out
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
