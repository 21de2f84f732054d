package account

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// 账户合约自定义签名校验使用的 EIP-712 包装结构
const wrapperPrimaryType = "LightAccountMessage"

var wrapperTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	wrapperPrimaryType: {
		{Name: "message", Type: "bytes"},
	},
}

// wrapDigest 将原始32字节摘要重新包装进账户的 EIP-712 校验域
// 域绑定链ID与账户自身地址，签名因此无法跨账户/跨链重放
func (a *Account) wrapDigest(ctx context.Context, digest []byte) ([]byte, error) {
	addr, err := a.Address(ctx)
	if err != nil {
		return nil, err
	}
	chainID, err := a.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	typedData := apitypes.TypedData{
		Types:       wrapperTypes,
		PrimaryType: wrapperPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              "LightAccount",
			Version:           a.version.domainVersion(),
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: addr.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"message": hexutil.Encode(digest),
		},
	}

	wrapped, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("hash wrapper typed data: %w", err)
	}
	return wrapped, nil
}

// signWrapped 包装摘要、签名并按版本打标签
// 三条签名路径（消息/类型化数据/用户操作哈希）共用此组合，仅前置哈希不同
func (a *Account) signWrapped(ctx context.Context, digest []byte) ([]byte, error) {
	if a.owner == nil {
		return nil, ErrOwnerMissing
	}

	wrapped, err := a.wrapDigest(ctx, digest)
	if err != nil {
		return nil, err
	}

	sig, err := a.owner.SignHash(wrapped)
	if err != nil {
		return nil, fmt.Errorf("sign wrapped digest: %w", err)
	}
	return a.version.tagSignature(sig), nil
}

// SignMessage 对任意消息生成账户合约可校验的签名
// 消息先做 EIP-191 个人消息哈希，再进入包装签名路径
func (a *Account) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return a.signWrapped(ctx, accounts.TextHash(message))
}

// SignTypedData 对 EIP-712 类型化数据生成账户合约可校验的签名
func (a *Account) SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	return a.signWrapped(ctx, digest)
}
