// Package transport provides chain and bundler transport for smart account operations.
package transport

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/kopy-kat/permissionless-go/core/userop"
)

// Client 统一传输客户端接口 - SDK 与链/bundler 通信的唯一通道
// 所有网络调用必须经由此接口；RPC 错误原样透传，由调用方决定重试策略
type Client interface {
	// ===== 链信息 =====

	// ChainID 获取链ID
	ChainID(ctx context.Context) (*big.Int, error)

	// Code 获取地址上的合约字节码（用于判断账户是否已部署）
	Code(ctx context.Context, addr common.Address) ([]byte, error)

	// ===== 账户状态 =====

	// SenderAddress 通过入口点 getSenderAddress 模拟调用解析确定性账户地址
	// initCode 为 factory 地址与工厂调用数据的拼接
	SenderAddress(ctx context.Context, entryPoint common.Address, initCode []byte) (common.Address, error)

	// GetNonce 读取入口点中 (sender, key) 的下一个可用 nonce
	GetNonce(ctx context.Context, entryPoint, sender common.Address, key *big.Int) (*big.Int, error)

	// ===== 用户操作提交与查询 =====

	// SendUserOperation 提交已签名的用户操作，返回操作哈希
	SendUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address, version userop.EntryPointVersion) (common.Hash, error)

	// EstimateUserOperationGas 向 bundler 估算操作的 gas 字段
	EstimateUserOperationGas(ctx context.Context, op *userop.UserOperation, entryPoint common.Address, version userop.EntryPointVersion) (*GasEstimate, error)

	// GetUserOperationReceipt 按操作哈希获取回执；尚未打包时返回 ErrReceiptNotFound
	GetUserOperationReceipt(ctx context.Context, opHash common.Hash) (*UserOperationReceipt, error)

	// WaitForUserOperationReceipt 有界轮询回执；超时返回 ErrReceiptTimeout
	WaitForUserOperationReceipt(ctx context.Context, opHash common.Hash, timeout time.Duration) (*UserOperationReceipt, error)

	// Close 关闭客户端连接
	Close() error
}

// 回执等待的哨兵错误
var (
	// ErrReceiptNotFound 回执尚不存在（操作未打包或未知）
	ErrReceiptNotFound = errors.New("user operation receipt not found")
	// ErrReceiptTimeout 等待回执超出调用方时限
	ErrReceiptTimeout = errors.New("timed out waiting for user operation receipt")
)

// GasEstimate bundler 返回的 gas 估算结果
type GasEstimate struct {
	PreVerificationGas            *hexutil.Big `json:"preVerificationGas"`
	VerificationGasLimit          *hexutil.Big `json:"verificationGasLimit"`
	CallGasLimit                  *hexutil.Big `json:"callGasLimit"`
	PaymasterVerificationGasLimit *hexutil.Big `json:"paymasterVerificationGasLimit,omitempty"`
}

// UserOperationReceipt 用户操作回执
type UserOperationReceipt struct {
	UserOpHash    common.Hash    `json:"userOpHash"`
	EntryPoint    common.Address `json:"entryPoint"`
	Sender        common.Address `json:"sender"`
	Nonce         *hexutil.Big   `json:"nonce"`
	Paymaster     common.Address `json:"paymaster,omitempty"`
	ActualGasCost *hexutil.Big   `json:"actualGasCost"`
	ActualGasUsed *hexutil.Big   `json:"actualGasUsed"`
	Success       bool           `json:"success"`
	Reason        string         `json:"reason,omitempty"`
	Receipt       TxReceipt      `json:"receipt"`
}

// TxReceipt 打包该操作的链上交易回执（节选字段）
type TxReceipt struct {
	TransactionHash common.Hash  `json:"transactionHash"`
	BlockHash       common.Hash  `json:"blockHash"`
	BlockNumber     *hexutil.Big `json:"blockNumber"`
	GasUsed         *hexutil.Big `json:"gasUsed"`
	Status          string       `json:"status,omitempty"`
}
