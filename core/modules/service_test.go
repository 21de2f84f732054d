package modules

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopy-kat/permissionless-go/core/account"
	"github.com/kopy-kat/permissionless-go/core/transport"
	"github.com/kopy-kat/permissionless-go/core/userop"
	"github.com/kopy-kat/permissionless-go/core/wallet"
)

// fakeClient bundler+链的内存替身
// 提交的操作按其调用数据的 keccak 生成操作哈希，回执可注入
type fakeClient struct {
	senderAddr common.Address
	nonce      *big.Int

	submitted   []*userop.UserOperation
	waitReceipt func(opHash common.Hash) (*transport.UserOperationReceipt, error)
	getReceipt  func(opHash common.Hash) (*transport.UserOperationReceipt, error)
}

func (f *fakeClient) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeClient) Code(ctx context.Context, addr common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeClient) SenderAddress(ctx context.Context, entryPoint common.Address, initCode []byte) (common.Address, error) {
	return f.senderAddr, nil
}

func (f *fakeClient) GetNonce(ctx context.Context, entryPoint, sender common.Address, key *big.Int) (*big.Int, error) {
	return f.nonce, nil
}

func (f *fakeClient) SendUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address, version userop.EntryPointVersion) (common.Hash, error) {
	f.submitted = append(f.submitted, op)
	return crypto.Keccak256Hash(op.CallData), nil
}

func (f *fakeClient) EstimateUserOperationGas(ctx context.Context, op *userop.UserOperation, entryPoint common.Address, version userop.EntryPointVersion) (*transport.GasEstimate, error) {
	return &transport.GasEstimate{
		PreVerificationGas:   (*hexutil.Big)(big.NewInt(50000)),
		VerificationGasLimit: (*hexutil.Big)(big.NewInt(150000)),
		CallGasLimit:         (*hexutil.Big)(big.NewInt(250000)),
	}, nil
}

func (f *fakeClient) GetUserOperationReceipt(ctx context.Context, opHash common.Hash) (*transport.UserOperationReceipt, error) {
	return f.getReceipt(opHash)
}

func (f *fakeClient) WaitForUserOperationReceipt(ctx context.Context, opHash common.Hash, timeout time.Duration) (*transport.UserOperationReceipt, error) {
	return f.waitReceipt(opHash)
}

func (f *fakeClient) Close() error { return nil }

var _ transport.Client = (*fakeClient)(nil)

func confirmedReceipt(opHash common.Hash) *transport.UserOperationReceipt {
	return &transport.UserOperationReceipt{
		UserOpHash: opHash,
		Success:    true,
		Receipt: transport.TxReceipt{
			TransactionHash: crypto.Keccak256Hash(opHash.Bytes()),
		},
	}
}

func newService(t *testing.T, client *fakeClient) *Service {
	t.Helper()

	owner, err := wallet.NewPrivateKeyOwnerFromHex("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)

	acct, err := account.New(account.Config{
		Owner:     owner,
		Version:   account.V2_0_0,
		Transport: client,
		Address:   client.senderAddr,
	})
	require.NoError(t, err)

	return NewService(acct, client, nil)
}

func TestInstallPayloadConventions(t *testing.T) {
	mod := Module{
		Type:    TypeExecutor,
		Address: common.HexToAddress("0x4Fd8d57b94966982B62e9588C27B4171B55E8354"),
		Context: common.HexToAddress("0x9999999999999999999999999999999999999999").Bytes(),
	}

	raw, err := mod.InstallPayload()
	require.NoError(t, err)
	assert.Equal(t, registryABI.Methods["installModule"].ID, raw[:4])

	mod.Convention = ConventionHookWrapped
	wrapped, err := mod.InstallPayload()
	require.NoError(t, err)
	assert.NotEqual(t, raw, wrapped)
	assert.Greater(t, len(wrapped), len(raw))
}

func TestEncodeLinkedListContext(t *testing.T) {
	prev := common.HexToAddress("0x0000000000000000000000000000000000000001")

	ctx, err := EncodeLinkedListContext(prev, nil)
	require.NoError(t, err)

	// abi.encode(address, bytes): 地址槽 + 偏移槽 + 长度槽
	require.Len(t, ctx, 96)
	assert.Equal(t, prev, common.BytesToAddress(ctx[12:32]))

	decoded, err := linkedListArgs.Unpack(ctx)
	require.NoError(t, err)
	assert.Equal(t, prev, decoded[0].(common.Address))
	assert.Empty(t, decoded[1].([]byte))
}

// 完整场景：安装 executor 模块、确认回执、再以前驱指针上下文卸载
func TestInstallThenUninstall(t *testing.T) {
	sender := common.HexToAddress("0x8888888888888888888888888888888888888888")
	client := &fakeClient{senderAddr: sender, nonce: big.NewInt(0)}
	client.waitReceipt = func(opHash common.Hash) (*transport.UserOperationReceipt, error) {
		return confirmedReceipt(opHash), nil
	}
	client.getReceipt = func(opHash common.Hash) (*transport.UserOperationReceipt, error) {
		return confirmedReceipt(opHash), nil
	}

	svc := newService(t, client)
	moduleAddr := common.HexToAddress("0x4Fd8d57b94966982B62e9588C27B4171B55E8354")

	install, err := svc.Install(context.Background(), Module{
		Type:    TypeExecutor,
		Address: moduleAddr,
		Context: sender.Bytes(),
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, install.Status)
	assert.NotEqual(t, common.Hash{}, install.OperationHash)

	uninstallCtx, err := EncodeLinkedListContext(
		common.HexToAddress("0x0000000000000000000000000000000000000001"), nil)
	require.NoError(t, err)

	uninstall, err := svc.Uninstall(context.Background(), Module{
		Type:    TypeExecutor,
		Address: moduleAddr,
		Context: uninstallCtx,
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, uninstall.Status)
	assert.Len(t, uninstall.OperationHash, 32)
	assert.NotEqual(t, install.OperationHash, uninstall.OperationHash)

	// 等待与复取观察到同一交易哈希
	assert.Equal(t, uninstall.Receipt.UserOpHash, uninstall.OperationHash)
	refetched, err := client.getReceipt(uninstall.OperationHash)
	require.NoError(t, err)
	assert.Equal(t, refetched.Receipt.TransactionHash, uninstall.Receipt.Receipt.TransactionHash)

	// 两次提交的都是对账户自身的调用
	require.Len(t, client.submitted, 2)
	for _, op := range client.submitted {
		assert.Equal(t, sender, op.Sender)
		assert.NotEmpty(t, op.Signature)
	}
}

func TestInstallTimeout(t *testing.T) {
	sender := common.HexToAddress("0x8888888888888888888888888888888888888888")
	client := &fakeClient{senderAddr: sender, nonce: big.NewInt(0)}
	client.waitReceipt = func(opHash common.Hash) (*transport.UserOperationReceipt, error) {
		return nil, transport.ErrReceiptTimeout
	}

	svc := newService(t, client)

	result, err := svc.Install(context.Background(), Module{
		Type:    TypeExecutor,
		Address: common.HexToAddress("0x4Fd8d57b94966982B62e9588C27B4171B55E8354"),
	}, 10*time.Millisecond)

	assert.ErrorIs(t, err, transport.ErrReceiptTimeout)
	assert.Equal(t, StatusTimedOut, result.Status)
	// 超时仍保留操作哈希，调用方可自行继续轮询
	assert.NotEqual(t, common.Hash{}, result.OperationHash)
}

func TestReceiptMismatchFatal(t *testing.T) {
	sender := common.HexToAddress("0x8888888888888888888888888888888888888888")
	client := &fakeClient{senderAddr: sender, nonce: big.NewInt(0)}
	client.waitReceipt = func(opHash common.Hash) (*transport.UserOperationReceipt, error) {
		return confirmedReceipt(opHash), nil
	}
	client.getReceipt = func(opHash common.Hash) (*transport.UserOperationReceipt, error) {
		r := confirmedReceipt(opHash)
		r.Receipt.TransactionHash = common.HexToHash("0xdead")
		return r, nil
	}

	svc := newService(t, client)

	result, err := svc.Install(context.Background(), Module{
		Type:    TypeValidator,
		Address: common.HexToAddress("0x4Fd8d57b94966982B62e9588C27B4171B55E8354"),
	}, time.Second)

	assert.ErrorIs(t, err, ErrReceiptMismatch)
	assert.Equal(t, StatusReverted, result.Status)
}

func TestRevertedReceipt(t *testing.T) {
	sender := common.HexToAddress("0x8888888888888888888888888888888888888888")
	client := &fakeClient{senderAddr: sender, nonce: big.NewInt(0)}
	client.waitReceipt = func(opHash common.Hash) (*transport.UserOperationReceipt, error) {
		r := confirmedReceipt(opHash)
		r.Success = false
		r.Reason = "module not installed"
		return r, nil
	}
	client.getReceipt = func(opHash common.Hash) (*transport.UserOperationReceipt, error) {
		r := confirmedReceipt(opHash)
		r.Success = false
		r.Reason = "module not installed"
		return r, nil
	}

	svc := newService(t, client)

	result, err := svc.Uninstall(context.Background(), Module{
		Type:    TypeExecutor,
		Address: common.HexToAddress("0x4Fd8d57b94966982B62e9588C27B4171B55E8354"),
	}, time.Second)

	require.NoError(t, err)
	assert.Equal(t, StatusReverted, result.Status)
	assert.Equal(t, "module not installed", result.Receipt.Reason)
}
