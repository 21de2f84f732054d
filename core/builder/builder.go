// Package builder assembles unsigned user operations from account state.
package builder

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/kopy-kat/permissionless-go/core/account"
	"github.com/kopy-kat/permissionless-go/core/transport"
	"github.com/kopy-kat/permissionless-go/core/userop"
)

// Options 构建选项
// gas 字段为 nil 时经 bundler 估算填充；费率字段为 nil 时保持为零，
// 由调用方按自己的费率策略覆盖
type Options struct {
	NonceKey *big.Int

	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int

	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// OperationBuilder 未签名操作装配器
// 负责 sender 解析、工厂字段附加（仅账户未部署时）、nonce 读取、
// 调用数据编码与 gas 估算
type OperationBuilder struct {
	account   *account.Account
	transport transport.Client
	logger    *zap.Logger
}

// New 创建操作装配器
func New(acct *account.Account, client transport.Client, logger *zap.Logger) *OperationBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperationBuilder{
		account:   acct,
		transport: client,
		logger:    logger,
	}
}

// Build 装配一个可供签名的用户操作
//
// 流程：
//  1. 编码调用数据（空列表在任何网络调用前失败）
//  2. 解析 sender 地址
//  3. 账户未部署时附加工厂字段
//  4. 读取 nonce
//  5. 应用调用方 gas 覆盖，缺失字段经 bundler 估算补齐
func (b *OperationBuilder) Build(ctx context.Context, calls []account.Call, opts *Options) (*userop.UserOperation, error) {
	if opts == nil {
		opts = &Options{}
	}

	callData, err := account.EncodeCalls(calls)
	if err != nil {
		return nil, err
	}

	sender, err := b.account.Address(ctx)
	if err != nil {
		return nil, err
	}

	op := &userop.UserOperation{
		Sender:               sender,
		CallData:             callData,
		CallGasLimit:         opts.CallGasLimit,
		VerificationGasLimit: opts.VerificationGasLimit,
		PreVerificationGas:   opts.PreVerificationGas,
		MaxFeePerGas:         opts.MaxFeePerGas,
		MaxPriorityFeePerGas: opts.MaxPriorityFeePerGas,
	}

	deployed, err := b.account.Deployed(ctx)
	if err != nil {
		return nil, err
	}
	if !deployed {
		factory, factoryData, err := b.account.FactoryArgs()
		if err != nil {
			return nil, err
		}
		op.Factory = factory
		op.FactoryData = factoryData
	}

	nonce, err := b.account.Nonce(ctx, opts.NonceKey)
	if err != nil {
		return nil, err
	}
	op.Nonce = nonce

	if needsEstimation(opts) {
		if err := b.estimateGas(ctx, op); err != nil {
			return nil, err
		}
	}

	b.logger.Debug("built user operation",
		zap.String("sender", sender.Hex()),
		zap.String("nonce", nonce.String()),
		zap.Bool("deployed", deployed))

	return op, nil
}

func needsEstimation(opts *Options) bool {
	return opts.CallGasLimit == nil || opts.VerificationGasLimit == nil || opts.PreVerificationGas == nil
}

// estimateGas 以占位签名请求 bundler 估算，仅填充调用方未覆盖的字段
func (b *OperationBuilder) estimateGas(ctx context.Context, op *userop.UserOperation) error {
	withStub := *op
	withStub.Signature = b.account.StubSignature()

	version := b.account.Version().EntryPointVersion()
	estimate, err := b.transport.EstimateUserOperationGas(ctx, &withStub, b.account.EntryPoint(), version)
	if err != nil {
		return fmt.Errorf("estimate gas: %w", err)
	}

	if op.CallGasLimit == nil && estimate.CallGasLimit != nil {
		op.CallGasLimit = estimate.CallGasLimit.ToInt()
	}
	if op.VerificationGasLimit == nil && estimate.VerificationGasLimit != nil {
		op.VerificationGasLimit = estimate.VerificationGasLimit.ToInt()
	}
	if op.PreVerificationGas == nil && estimate.PreVerificationGas != nil {
		op.PreVerificationGas = estimate.PreVerificationGas.ToInt()
	}
	return nil
}
