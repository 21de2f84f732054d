package account

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/kopy-kat/permissionless-go/core/userop"
)

// stubSigBody 固定的65字节占位签名（r‖s‖v 形状），仅用于 gas 估算
var stubSigBody = hexutil.MustDecode("0xfffffffffffffffffffffffffffffff0000000000000000000000000000000007aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1c")

// SignUserOperation 对用户操作产生最终签名并附到操作上
// 哈希按账户入口点版本的规范规则计算（签名字段视为空），所有者对
// 哈希的 EIP-191 个人消息摘要签名，再按版本打标签
func (a *Account) SignUserOperation(ctx context.Context, op *userop.UserOperation) error {
	if a.owner == nil {
		return ErrOwnerMissing
	}
	if err := op.Validate(); err != nil {
		return err
	}

	chainID, err := a.ChainID(ctx)
	if err != nil {
		return err
	}

	opHash, err := userop.Hash(op, a.EntryPoint(), a.version.EntryPointVersion(), chainID)
	if err != nil {
		return fmt.Errorf("hash user operation: %w", err)
	}

	sig, err := a.owner.SignHash(accounts.TextHash(opHash.Bytes()))
	if err != nil {
		return fmt.Errorf("sign user operation: %w", err)
	}

	op.Signature = a.version.tagSignature(sig)
	return nil
}

// StubSignature 确定性的占位签名，长度与标签和真实签名一致
// 供 gas 估算使用，绝不可广播
func (a *Account) StubSignature() []byte {
	return a.version.tagSignature(stubSigBody)
}
