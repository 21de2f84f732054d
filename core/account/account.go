package account

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/kopy-kat/permissionless-go/core/transport"
	"github.com/kopy-kat/permissionless-go/core/wallet"
)

// 账户配置/状态错误
var (
	// ErrOwnerMissing 未配置所有者签名人
	ErrOwnerMissing = errors.New("account owner is missing")
)

// Config 账户构造配置
type Config struct {
	Owner     wallet.Owner      // 所有者签名人（必填）
	Version   Version           // 账户合约版本（必填）
	Transport transport.Client  // 链/bundler 传输（必填）
	Factory   common.Address    // 工厂地址；零值使用版本默认工厂
	Salt      *big.Int          // 部署盐/索引；nil 视为 0
	Address   common.Address    // 已知账户地址；零值则惰性推导
	NonceKey  *big.Int          // 默认 nonce key；nil 视为 0
	Logger    *zap.Logger       // 可选；nil 使用 Nop
}

// Account 一个抽象账户实例
// 地址与链ID首次解析后缓存，此后不变；并发安全仅限于这两处 memoization，
// 并发构建操作时的 nonce 竞争由调用方负责
type Account struct {
	owner     wallet.Owner
	version   Version
	transport transport.Client
	factory   common.Address
	salt      *big.Int
	nonceKey  *big.Int
	logger    *zap.Logger

	mu      sync.Mutex
	addr    common.Address
	chainID *big.Int
}

// New 创建账户实例
// 版本与所有者校验在此完成，任何网络调用之前
func New(cfg Config) (*Account, error) {
	if err := cfg.Version.Validate(); err != nil {
		return nil, err
	}
	if cfg.Owner == nil {
		return nil, ErrOwnerMissing
	}
	if cfg.Transport == nil {
		return nil, errors.New("account transport is missing")
	}

	factory := cfg.Factory
	if factory == (common.Address{}) {
		factory = cfg.Version.DefaultFactory()
	}

	salt := cfg.Salt
	if salt == nil {
		salt = new(big.Int)
	}

	nonceKey := cfg.NonceKey
	if nonceKey == nil {
		nonceKey = new(big.Int)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Account{
		owner:     cfg.Owner,
		version:   cfg.Version,
		transport: cfg.Transport,
		factory:   factory,
		salt:      salt,
		nonceKey:  nonceKey,
		logger:    logger,
		addr:      cfg.Address,
	}, nil
}

// Version 账户版本
func (a *Account) Version() Version {
	return a.version
}

// Owner 所有者签名人
func (a *Account) Owner() wallet.Owner {
	return a.owner
}

// EntryPoint 入口点地址
func (a *Account) EntryPoint() common.Address {
	return a.version.EntryPointAddress()
}

// FactoryArgs 工厂地址与 createAccount(owner, salt) 调用数据
func (a *Account) FactoryArgs() (common.Address, []byte, error) {
	if a.owner == nil {
		return common.Address{}, nil, ErrOwnerMissing
	}

	data, err := factoryABI.Pack("createAccount", a.owner.Address(), a.salt)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("pack createAccount: %w", err)
	}
	return a.factory, data, nil
}

// Address 解析账户地址
// 显式地址或已缓存地址直接返回；否则通过入口点 getSenderAddress 模拟推导
// 反事实地址并缓存，同一 Account 只推导一次
func (a *Account) Address(ctx context.Context) (common.Address, error) {
	a.mu.Lock()
	if a.addr != (common.Address{}) {
		addr := a.addr
		a.mu.Unlock()
		return addr, nil
	}
	a.mu.Unlock()

	factory, factoryData, err := a.FactoryArgs()
	if err != nil {
		return common.Address{}, err
	}

	initCode := make([]byte, 0, common.AddressLength+len(factoryData))
	initCode = append(initCode, factory.Bytes()...)
	initCode = append(initCode, factoryData...)

	addr, err := a.transport.SenderAddress(ctx, a.EntryPoint(), initCode)
	if err != nil {
		return common.Address{}, fmt.Errorf("derive sender address: %w", err)
	}

	a.mu.Lock()
	if a.addr == (common.Address{}) {
		a.addr = addr
	}
	addr = a.addr
	a.mu.Unlock()

	a.logger.Debug("resolved account address",
		zap.String("address", addr.Hex()),
		zap.String("version", string(a.version)))

	return addr, nil
}

// ChainID 解析链ID，首次获取后缓存
func (a *Account) ChainID(ctx context.Context) (*big.Int, error) {
	a.mu.Lock()
	if a.chainID != nil {
		id := a.chainID
		a.mu.Unlock()
		return id, nil
	}
	a.mu.Unlock()

	id, err := a.transport.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	a.mu.Lock()
	if a.chainID == nil {
		a.chainID = id
	}
	id = a.chainID
	a.mu.Unlock()

	return id, nil
}

// Nonce 读取 (key, sequence) 中的下一个可用 nonce
// key 为 nil 时使用账户默认 key；读取是只读的，不会推进序列
func (a *Account) Nonce(ctx context.Context, key *big.Int) (*big.Int, error) {
	addr, err := a.Address(ctx)
	if err != nil {
		return nil, err
	}

	if key == nil {
		key = a.nonceKey
	}

	nonce, err := a.transport.GetNonce(ctx, a.EntryPoint(), addr, key)
	if err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return nonce, nil
}

// Deployed 账户合约是否已部署（链上是否有字节码）
func (a *Account) Deployed(ctx context.Context) (bool, error) {
	addr, err := a.Address(ctx)
	if err != nil {
		return false, err
	}

	code, err := a.transport.Code(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("fetch code: %w", err)
	}
	return len(code) > 0, nil
}
