package modules

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/kopy-kat/permissionless-go/core/account"
	"github.com/kopy-kat/permissionless-go/core/builder"
	"github.com/kopy-kat/permissionless-go/core/transport"
)

// Status 一次模块动作在生命周期状态机中的位置
type Status string

const (
	StatusRequested       Status = "requested"
	StatusEncoded         Status = "encoded"
	StatusSubmitted       Status = "submitted"
	StatusAwaitingReceipt Status = "awaiting_receipt"
	StatusConfirmed       Status = "confirmed"
	StatusTimedOut        Status = "timed_out"
	StatusReverted        Status = "reverted"
)

// ErrReceiptMismatch 复取回执的交易哈希与等待期间观察到的不一致
// 表明传输层 wait 与 get 两条路径不一致，视为致命错误
var ErrReceiptMismatch = errors.New("re-fetched receipt transaction hash mismatch")

// DefaultReceiptTimeout 默认回执等待时限
const DefaultReceiptTimeout = 60 * time.Second

// Result 一次模块动作的结果
// 失败时 Status 停留在失败发生的状态，OperationHash 在提交成功后始终可用
type Result struct {
	Status        Status
	OperationHash common.Hash
	Receipt       *transport.UserOperationReceipt
}

// Service 模块生命周期管理器
// 安装/卸载共用同一条路径：编码 → 构建 → 签名 → 提交 → 等待回执 → 复核
type Service struct {
	account   *account.Account
	builder   *builder.OperationBuilder
	transport transport.Client
	logger    *zap.Logger
}

// NewService 创建模块生命周期管理器
func NewService(acct *account.Account, client transport.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		account:   acct,
		builder:   builder.New(acct, client, logger),
		transport: client,
		logger:    logger,
	}
}

// Install 安装模块并等待确认
func (s *Service) Install(ctx context.Context, mod Module, timeout time.Duration) (*Result, error) {
	payload, err := mod.InstallPayload()
	if err != nil {
		return &Result{Status: StatusRequested}, err
	}
	return s.execute(ctx, mod, "install", payload, timeout)
}

// Uninstall 卸载模块并等待确认
// 对已不存在的模块不做本地重试：链上的 revert 原样上抛，只有链持有权威状态
func (s *Service) Uninstall(ctx context.Context, mod Module, timeout time.Duration) (*Result, error) {
	payload, err := mod.UninstallPayload()
	if err != nil {
		return &Result{Status: StatusRequested}, err
	}
	return s.execute(ctx, mod, "uninstall", payload, timeout)
}

// execute 驱动单次模块动作走完状态机
func (s *Service) execute(ctx context.Context, mod Module, action string, payload []byte, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		timeout = DefaultReceiptTimeout
	}
	result := &Result{Status: StatusRequested}

	sender, err := s.account.Address(ctx)
	if err != nil {
		return result, err
	}

	// 模块动作是账户对自身的一笔调用
	op, err := s.builder.Build(ctx, []account.Call{{To: sender, Data: payload}}, nil)
	if err != nil {
		return result, err
	}
	result.Status = StatusEncoded

	if err := s.account.SignUserOperation(ctx, op); err != nil {
		return result, err
	}

	version := s.account.Version().EntryPointVersion()
	opHash, err := s.transport.SendUserOperation(ctx, op, s.account.EntryPoint(), version)
	if err != nil {
		result.Status = StatusReverted
		return result, err
	}
	result.Status = StatusSubmitted
	result.OperationHash = opHash

	s.logger.Info("module operation submitted",
		zap.String("action", action),
		zap.String("module", mod.Address.Hex()),
		zap.Uint64("type", uint64(mod.Type)),
		zap.String("opHash", opHash.Hex()))

	result.Status = StatusAwaitingReceipt
	receipt, err := s.transport.WaitForUserOperationReceipt(ctx, opHash, timeout)
	if err != nil {
		if errors.Is(err, transport.ErrReceiptTimeout) {
			result.Status = StatusTimedOut
		} else {
			result.Status = StatusReverted
		}
		return result, err
	}

	// 复取回执并比对交易哈希，防御 wait 与 get 路径不一致
	refetched, err := s.transport.GetUserOperationReceipt(ctx, opHash)
	if err != nil {
		result.Status = StatusReverted
		return result, err
	}
	if refetched.Receipt.TransactionHash != receipt.Receipt.TransactionHash {
		result.Status = StatusReverted
		return result, ErrReceiptMismatch
	}

	result.Receipt = refetched
	if !refetched.Success {
		result.Status = StatusReverted
		return result, nil
	}

	result.Status = StatusConfirmed
	return result, nil
}
