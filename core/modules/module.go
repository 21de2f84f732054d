// Package modules drives the install and uninstall lifecycle of account modules.
package modules

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Type 模块类型标签
type Type uint64

const (
	TypeValidator Type = 1
	TypeExecutor  Type = 2
	TypeFallback  Type = 3
	TypeHook      Type = 4
)

// Convention 账户变体的模块注册表约定
// 决定安装初始化数据的包装方式
type Convention int

const (
	// ConventionRaw 初始化数据原样传入
	ConventionRaw Convention = iota
	// ConventionHookWrapped 初始化数据包装为 零地址 ++ abi.encode(context, "")
	ConventionHookWrapped
)

// Module 一个可安装的账户功能单元
// Context 在安装时是初始化数据，在卸载时是注销上下文；链表注册表的
// 卸载上下文必须携带正确的前驱指针，本包不做本地校验，由链上裁决
type Module struct {
	Type       Type
	Address    common.Address
	Context    []byte
	Convention Convention
}

const registryABIJSON = `[
	{"type":"function","name":"installModule","inputs":[
		{"name":"moduleTypeId","type":"uint256"},
		{"name":"module","type":"address"},
		{"name":"initData","type":"bytes"}]},
	{"type":"function","name":"uninstallModule","inputs":[
		{"name":"moduleTypeId","type":"uint256"},
		{"name":"module","type":"address"},
		{"name":"deInitData","type":"bytes"}]}
]`

var registryABI = mustParseABI(registryABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

var bytesArgs = abi.Arguments{
	{Type: mustNewType("bytes")},
	{Type: mustNewType("bytes")},
}

var linkedListArgs = abi.Arguments{
	{Type: mustNewType("address")},
	{Type: mustNewType("bytes")},
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("new abi type %s: %v", t, err))
	}
	return typ
}

// installData 按注册表约定包装初始化数据
func (m Module) installData() ([]byte, error) {
	ctx := m.Context
	if ctx == nil {
		ctx = []byte{}
	}

	if m.Convention != ConventionHookWrapped {
		return ctx, nil
	}

	nested, err := bytesArgs.Pack(ctx, []byte{})
	if err != nil {
		return nil, fmt.Errorf("pack hook init data: %w", err)
	}

	wrapped := make([]byte, 0, common.AddressLength+len(nested))
	wrapped = append(wrapped, common.Address{}.Bytes()...)
	wrapped = append(wrapped, nested...)
	return wrapped, nil
}

// InstallPayload 构建 installModule(uint256,address,bytes) 调用数据
func (m Module) InstallPayload() ([]byte, error) {
	initData, err := m.installData()
	if err != nil {
		return nil, err
	}

	data, err := registryABI.Pack("installModule", new(big.Int).SetUint64(uint64(m.Type)), m.Address, initData)
	if err != nil {
		return nil, fmt.Errorf("pack installModule: %w", err)
	}
	return data, nil
}

// UninstallPayload 构建 uninstallModule(uint256,address,bytes) 调用数据
// 注销上下文按调用方提供的原始字节传入，不做形状校验
func (m Module) UninstallPayload() ([]byte, error) {
	ctx := m.Context
	if ctx == nil {
		ctx = []byte{}
	}

	data, err := registryABI.Pack("uninstallModule", new(big.Int).SetUint64(uint64(m.Type)), m.Address, ctx)
	if err != nil {
		return nil, fmt.Errorf("pack uninstallModule: %w", err)
	}
	return data, nil
}

// EncodeLinkedListContext 编码链表注册表的注销上下文 abi.encode(prev, initData)
// prev 必须是同类型模块链表中当前模块的前驱；错误的前驱会在链上失败
func EncodeLinkedListContext(prev common.Address, initData []byte) ([]byte, error) {
	if initData == nil {
		initData = []byte{}
	}
	out, err := linkedListArgs.Pack(prev, initData)
	if err != nil {
		return nil, fmt.Errorf("pack uninstall context: %w", err)
	}
	return out, nil
}
