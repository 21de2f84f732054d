// Package permissionless is a client SDK for ERC-4337 smart accounts:
// counterfactual address derivation, user operation construction and signing,
// and ERC-7579 module lifecycle management.
package permissionless

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"

	"github.com/kopy-kat/permissionless-go/core/account"
	"github.com/kopy-kat/permissionless-go/core/builder"
	"github.com/kopy-kat/permissionless-go/core/modules"
	"github.com/kopy-kat/permissionless-go/core/transport"
	"github.com/kopy-kat/permissionless-go/core/userop"
)

// Client 智能账户客户端 - 统一的 SDK 入口
// 组合传输、账户、操作装配与模块生命周期能力
type Client struct {
	account   *account.Account
	builder   *builder.OperationBuilder
	modules   *modules.Service
	transport transport.Client
	timeout   time.Duration
}

// Options 客户端构造选项
type Options struct {
	BundlerURL     string           // bundler/链 JSON-RPC 端点（与 Transport 二选一）
	Transport      transport.Client // 自定义传输实现
	RequestTimeout time.Duration    // 单次 RPC 超时，零值取 30s
	ReceiptTimeout time.Duration    // 回执等待时限，零值取默认
	Logger         *zap.Logger
}

// New 创建客户端实例
func New(cfg account.Config, opts Options) (*Client, error) {
	t := opts.Transport
	if t == nil {
		t = transport.NewJSONRPCClient(opts.BundlerURL, opts.RequestTimeout)
	}
	cfg.Transport = t
	if cfg.Logger == nil {
		cfg.Logger = opts.Logger
	}

	acct, err := account.New(cfg)
	if err != nil {
		return nil, err
	}

	receiptTimeout := opts.ReceiptTimeout
	if receiptTimeout <= 0 {
		receiptTimeout = modules.DefaultReceiptTimeout
	}

	return &Client{
		account:   acct,
		builder:   builder.New(acct, t, opts.Logger),
		modules:   modules.NewService(acct, t, opts.Logger),
		transport: t,
		timeout:   receiptTimeout,
	}, nil
}

// Account 底层账户实例
func (c *Client) Account() *account.Account {
	return c.account
}

// Transport 底层传输客户端，用于直接调用 RPC 方法
func (c *Client) Transport() transport.Client {
	return c.transport
}

// Close 关闭底层传输
func (c *Client) Close() error {
	return c.transport.Close()
}

// === 账户 ===

// GetAddress 解析账户地址（反事实地址，结果缓存）
func (c *Client) GetAddress(ctx context.Context) (common.Address, error) {
	return c.account.Address(ctx)
}

// === 签名 ===

// SignMessage 生成账户合约可校验的消息签名
func (c *Client) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return c.account.SignMessage(ctx, message)
}

// SignTypedData 生成账户合约可校验的 EIP-712 签名
func (c *Client) SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error) {
	return c.account.SignTypedData(ctx, typedData)
}

// SignUserOperation 对用户操作计算规范哈希并附加最终签名
func (c *Client) SignUserOperation(ctx context.Context, op *userop.UserOperation) error {
	return c.account.SignUserOperation(ctx, op)
}

// === 操作提交 ===

// SendCalls 将一组调用编码、签名并提交给 bundler，返回操作哈希
func (c *Client) SendCalls(ctx context.Context, calls []account.Call, opts *builder.Options) (common.Hash, error) {
	op, err := c.builder.Build(ctx, calls, opts)
	if err != nil {
		return common.Hash{}, err
	}
	if err := c.account.SignUserOperation(ctx, op); err != nil {
		return common.Hash{}, err
	}
	return c.transport.SendUserOperation(ctx, op, c.account.EntryPoint(), c.account.Version().EntryPointVersion())
}

// WaitForReceipt 等待操作回执，有界轮询
func (c *Client) WaitForReceipt(ctx context.Context, opHash common.Hash) (*transport.UserOperationReceipt, error) {
	return c.transport.WaitForUserOperationReceipt(ctx, opHash, c.timeout)
}

// === 模块生命周期 ===

// InstallModule 安装模块并等待确认
func (c *Client) InstallModule(ctx context.Context, mod modules.Module) (*modules.Result, error) {
	return c.modules.Install(ctx, mod, c.timeout)
}

// UninstallModule 卸载模块并等待确认
func (c *Client) UninstallModule(ctx context.Context, mod modules.Module) (*modules.Result, error) {
	return c.modules.Uninstall(ctx, mod, c.timeout)
}
