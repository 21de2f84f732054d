package userop

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOp() *UserOperation {
	return &UserOperation{
		Sender:               common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		Nonce:                big.NewInt(7),
		Factory:              common.HexToAddress("0x0000000000400CdFef5E2714E63d8040b700BC24"),
		FactoryData:          []byte{0x01, 0x02, 0x03},
		CallData:             []byte{0xca, 0xfe},
		CallGasLimit:         big.NewInt(100000),
		VerificationGasLimit: big.NewInt(200000),
		PreVerificationGas:   big.NewInt(50000),
		MaxFeePerGas:         big.NewInt(2_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
	}
}

func TestInitCode(t *testing.T) {
	op := sampleOp()

	initCode := op.InitCode()
	require.Len(t, initCode, 23)
	assert.Equal(t, op.Factory.Bytes(), initCode[:20])
	assert.Equal(t, op.FactoryData, initCode[20:])

	// 无工厂字段时为空
	op.Factory = common.Address{}
	assert.Nil(t, op.InitCode())
}

func TestPaymasterAndData(t *testing.T) {
	op := sampleOp()
	assert.Nil(t, op.PaymasterAndData(EntryPointV06))

	op.Paymaster = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	op.PaymasterVerificationGasLimit = big.NewInt(3)
	op.PaymasterPostOpGasLimit = big.NewInt(4)
	op.PaymasterData = []byte{0xdd}

	// v0.6: paymaster ++ data
	v06 := op.PaymasterAndData(EntryPointV06)
	require.Len(t, v06, 21)
	assert.Equal(t, op.Paymaster.Bytes(), v06[:20])

	// v0.7: paymaster ++ verGas(16) ++ postOpGas(16) ++ data
	v07 := op.PaymasterAndData(EntryPointV07)
	require.Len(t, v07, 53)
	assert.Equal(t, byte(3), v07[35])
	assert.Equal(t, byte(4), v07[51])
	assert.Equal(t, byte(0xdd), v07[52])
}

func TestPackedGasFields(t *testing.T) {
	op := sampleOp()

	limits := op.AccountGasLimits()
	assert.Equal(t, new(big.Int).SetBytes(limits[:16]), op.VerificationGasLimit)
	assert.Equal(t, new(big.Int).SetBytes(limits[16:]), op.CallGasLimit)

	fees := op.GasFees()
	assert.Equal(t, new(big.Int).SetBytes(fees[:16]), op.MaxPriorityFeePerGas)
	assert.Equal(t, new(big.Int).SetBytes(fees[16:]), op.MaxFeePerGas)
}

func TestHashIgnoresSignature(t *testing.T) {
	chainID := big.NewInt(1)

	for _, version := range []EntryPointVersion{EntryPointV06, EntryPointV07} {
		unsigned := sampleOp()
		signed := sampleOp()
		signed.Signature = []byte{0x01, 0x02, 0x03}

		entryPoint := EntryPointV06Address
		if version == EntryPointV07 {
			entryPoint = EntryPointV07Address
		}

		h1, err := Hash(unsigned, entryPoint, version, chainID)
		require.NoError(t, err)
		h2, err := Hash(signed, entryPoint, version, chainID)
		require.NoError(t, err)
		assert.Equal(t, h1, h2, "version %s", version)
	}
}

func TestHashDomainSeparation(t *testing.T) {
	op := sampleOp()

	base, err := Hash(op, EntryPointV07Address, EntryPointV07, big.NewInt(1))
	require.NoError(t, err)

	otherChain, err := Hash(op, EntryPointV07Address, EntryPointV07, big.NewInt(10))
	require.NoError(t, err)
	assert.NotEqual(t, base, otherChain)

	otherEntryPoint, err := Hash(op, EntryPointV06Address, EntryPointV07, big.NewInt(1))
	require.NoError(t, err)
	assert.NotEqual(t, base, otherEntryPoint)

	otherLayout, err := Hash(op, EntryPointV07Address, EntryPointV06, big.NewInt(1))
	require.NoError(t, err)
	assert.NotEqual(t, base, otherLayout)
}

func TestHashDeterministic(t *testing.T) {
	h1, err := Hash(sampleOp(), EntryPointV07Address, EntryPointV07, big.NewInt(1))
	require.NoError(t, err)
	h2, err := Hash(sampleOp(), EntryPointV07Address, EntryPointV07, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestHashUnknownVersion(t *testing.T) {
	_, err := Hash(sampleOp(), EntryPointV07Address, EntryPointVersion("0.8"), big.NewInt(1))
	assert.Error(t, err)
}

func TestRPCFormat(t *testing.T) {
	op := sampleOp()

	v07 := op.RPCFormat(EntryPointV07)
	assert.Equal(t, op.Sender.Hex(), v07["sender"])
	assert.Equal(t, "0x7", v07["nonce"])
	assert.Contains(t, v07, "factory")
	assert.Contains(t, v07, "factoryData")
	assert.NotContains(t, v07, "initCode")
	assert.NotContains(t, v07, "paymaster")

	v06 := op.RPCFormat(EntryPointV06)
	assert.Contains(t, v06, "initCode")
	assert.Contains(t, v06, "paymasterAndData")
	assert.NotContains(t, v06, "factory")
}

func TestValidate(t *testing.T) {
	op := sampleOp()
	assert.NoError(t, op.Validate())

	op.Sender = common.Address{}
	assert.Error(t, op.Validate())

	op = sampleOp()
	op.Nonce = nil
	assert.Error(t, op.Validate())
}
