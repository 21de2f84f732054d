package permissionless

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
	"github.com/kopy-kat/permissionless-go/core/modules"
	"github.com/kopy-kat/permissionless-go/core/transport"
	"github.com/kopy-kat/permissionless-go/core/userop"
	"github.com/kopy-kat/permissionless-go/core/wallet"
)

type fakeClient struct {
	senderAddr common.Address
	submitted  []*userop.UserOperation
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
	return big.NewInt(0), nil
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
	return &transport.UserOperationReceipt{
		UserOpHash: opHash,
		Success:    true,
		Receipt:    transport.TxReceipt{TransactionHash: crypto.Keccak256Hash(opHash.Bytes())},
	}, nil
}

func (f *fakeClient) WaitForUserOperationReceipt(ctx context.Context, opHash common.Hash, timeout time.Duration) (*transport.UserOperationReceipt, error) {
	return f.GetUserOperationReceipt(ctx, opHash)
}

func (f *fakeClient) Close() error { return nil }

var _ transport.Client = (*fakeClient)(nil)

func newTestClient(t *testing.T) (*Client, *fakeClient) {
	t.Helper()

	sender := common.HexToAddress("0x8888888888888888888888888888888888888888")
	fake := &fakeClient{senderAddr: sender}

	owner, err := wallet.NewPrivateKeyOwnerFromHex("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)

	client, err := New(account.Config{
		Owner:   owner,
		Version: account.V2_0_0,
		Address: sender,
	}, Options{Transport: fake})
	require.NoError(t, err)
	return client, fake
}

func TestSendCalls(t *testing.T) {
	client, fake := newTestClient(t)
	defer client.Close()

	opHash, err := client.SendCalls(context.Background(), []account.Call{
		{To: common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd"), Value: big.NewInt(1)},
	}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, opHash)

	require.Len(t, fake.submitted, 1)
	op := fake.submitted[0]
	assert.Equal(t, fake.senderAddr, op.Sender)
	assert.Len(t, op.Signature, 66)

	receipt, err := client.WaitForReceipt(context.Background(), opHash)
	require.NoError(t, err)
	assert.True(t, receipt.Success)
}

func TestSendCallsEmpty(t *testing.T) {
	client, fake := newTestClient(t)
	defer client.Close()

	_, err := client.SendCalls(context.Background(), nil, nil)
	assert.ErrorIs(t, err, account.ErrNoCalls)
	assert.Empty(t, fake.submitted)
}

func TestInstallModuleThroughFacade(t *testing.T) {
	client, _ := newTestClient(t)
	defer client.Close()

	result, err := client.InstallModule(context.Background(), modules.Module{
		Type:    modules.TypeExecutor,
		Address: common.HexToAddress("0x4Fd8d57b94966982B62e9588C27B4171B55E8354"),
	})
	require.NoError(t, err)
	assert.Equal(t, modules.StatusConfirmed, result.Status)
}

func TestSignMessageThroughFacade(t *testing.T) {
	client, _ := newTestClient(t)
	defer client.Close()

	sig, err := client.SignMessage(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Len(t, sig, 66)
}
