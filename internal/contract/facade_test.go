package contract_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/contract-gateway/internal/chain"
	"github/chapool/contract-gateway/internal/contract"
	"github/chapool/contract-gateway/internal/gateway"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
	"github/chapool/contract-gateway/internal/test"
)

var deployed = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func newFacade(t *testing.T) (*contract.Facade, *test.GatewayFixture) {
	t.Helper()

	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
	facade := contract.NewFacade(fx.Chain, fx.Gateway, test.ContractArtifact(t), contract.Config{CallRetryDelay: 1}, zerolog.Nop())

	return facade, fx
}

func TestReadCallNeverTouchesNonceOrSigner(t *testing.T) {
	facade, fx := newFacade(t)
	artifact := test.ContractArtifact(t)

	encoded, err := artifact.ABI.Methods["myFunction"].Outputs.Pack(big.NewInt(42))
	require.NoError(t, err)

	var seen chain.CallRequest
	fx.Chain.OnCall(func(call chain.CallRequest) ([]byte, error) {
		seen = call
		return encoded, nil
	})

	result, err := facade.ReadCall(t.Context(), facade.At(deployed), contract.DefaultReadFunction, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"42"}, result)

	assert.Equal(t, deployed, seen.To)
	assert.Equal(t, artifact.ABI.Methods["myFunction"].ID, seen.Data)

	assert.Zero(t, fx.Chain.NonceCalls.Load())
	assert.Zero(t, fx.Chain.SubmitCalls.Load())
	assert.False(t, fx.Sequencer.State(test.Address).Seeded)
}

func TestReadCallDecodesTupleOutputs(t *testing.T) {
	facade, fx := newFacade(t)
	artifact := test.ContractArtifact(t)
	who := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	tag := [32]byte{0x01, 0x02}
	encoded, err := artifact.ABI.Methods["getInfo"].Outputs.Pack("alice", true, tag)
	require.NoError(t, err)

	expectedData, err := artifact.ABI.Pack("getInfo", who)
	require.NoError(t, err)

	fx.Chain.OnCall(func(call chain.CallRequest) ([]byte, error) {
		assert.Equal(t, expectedData, call.Data)
		return encoded, nil
	})

	result, err := facade.ReadCall(t.Context(), facade.At(deployed), "getInfo", []any{who.Hex()})
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "alice", result[0])
	assert.Equal(t, true, result[1])
	assert.Equal(t, "0x0102000000000000000000000000000000000000000000000000000000000000", result[2])
}

func TestReadCallRetriesOnce(t *testing.T) {
	facade, fx := newFacade(t)
	encoded, err := test.ContractArtifact(t).ABI.Methods["myFunction"].Outputs.Pack(big.NewInt(1))
	require.NoError(t, err)

	fx.Chain.OnCall(func(chain.CallRequest) ([]byte, error) {
		if fx.Chain.CallCalls.Load() == 1 {
			return nil, test.Unavailable("connection reset")
		}
		return encoded, nil
	})

	result, err := facade.ReadCall(t.Context(), facade.At(deployed), "myFunction", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"1"}, result)
	assert.Equal(t, int64(2), fx.Chain.CallCalls.Load())
}

func TestReadCallGivesUpAfterOneRetry(t *testing.T) {
	facade, fx := newFacade(t)
	fx.Chain.OnCall(func(chain.CallRequest) ([]byte, error) {
		return nil, test.Unavailable("503")
	})

	_, err := facade.ReadCall(t.Context(), facade.At(deployed), "myFunction", nil)
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindProviderUnavailable))
	assert.Equal(t, int64(2), fx.Chain.CallCalls.Load())
}

func TestReadCallErrors(t *testing.T) {
	facade, fx := newFacade(t)
	fx.Chain.OnCall(func(chain.CallRequest) ([]byte, error) {
		return []byte{0x01, 0x02}, nil
	})

	tests := []struct {
		name     string
		address  common.Address
		function string
		args     []any
		kind     gwerr.Kind
	}{
		{"unknown function", deployed, "doesNotExist", nil, gwerr.KindUnknownFunction},
		{"missing address", common.Address{}, "myFunction", nil, gwerr.KindInvalidInput},
		{"wrong arity", deployed, "getInfo", nil, gwerr.KindInvalidInput},
		{"bad address arg", deployed, "getInfo", []any{"0x1234"}, gwerr.KindInvalidInput},
		{"undecodable result", deployed, "myFunction", nil, gwerr.KindDecodeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := facade.ReadCall(t.Context(), facade.At(tt.address), tt.function, tt.args)
			require.Error(t, err)
			assert.Equal(t, tt.kind, gwerr.KindOf(err), err.Error())
		})
	}
}

func TestReadCallEmptyResult(t *testing.T) {
	facade, _ := newFacade(t)

	_, err := facade.ReadCall(t.Context(), facade.At(deployed), "myFunction", nil)
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindDecodeError))
}

func TestWriteCall(t *testing.T) {
	facade, fx := newFacade(t)
	artifact := test.ContractArtifact(t)

	outcome, err := facade.WriteCall(t.Context(), facade.At(deployed), test.PrivateKey, "setValue", []any{"42"})
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusConfirmed, outcome.Status)

	expected, err := artifact.ABI.Pack("setValue", big.NewInt(42))
	require.NoError(t, err)

	tx := fx.Chain.Submitted()[0]
	assert.Equal(t, deployed, *tx.To())
	assert.Equal(t, expected, tx.Data())
}

func TestWriteCallCoercesListsAndBytes(t *testing.T) {
	facade, fx := newFacade(t)
	artifact := test.ContractArtifact(t)

	_, err := facade.WriteCall(t.Context(), facade.At(deployed), test.PrivateKey, "setMany", []any{"[1, 2, 3]", "0xbeef"})
	require.NoError(t, err)

	expected, err := artifact.ABI.Pack("setMany", []uint64{1, 2, 3}, []byte{0xbe, 0xef})
	require.NoError(t, err)
	assert.Equal(t, expected, fx.Chain.Submitted()[0].Data())
}

func TestWriteCallRejectsBadArguments(t *testing.T) {
	facade, fx := newFacade(t)

	for _, args := range [][]any{{"-1"}, {"1.5"}, {true}, {"1", "2"}} {
		_, err := facade.WriteCall(t.Context(), facade.At(deployed), test.PrivateKey, "setValue", args)
		require.Error(t, err)
		assert.True(t, gwerr.Is(err, gwerr.KindInvalidInput), err.Error())
	}

	_, err := facade.WriteCall(t.Context(), facade.At(deployed), test.PrivateKey, "missing", nil)
	assert.True(t, gwerr.Is(err, gwerr.KindUnknownFunction))

	assert.Zero(t, fx.Chain.NonceCalls.Load())
}

func TestDeploy(t *testing.T) {
	facade, fx := newFacade(t)
	fx.Chain.SetNonce(test.Address, 2)

	outcome, err := facade.Deploy(t.Context(), test.PrivateKey, []any{7})
	require.NoError(t, err)
	require.NotNil(t, outcome.ContractAddress)
	assert.Equal(t, crypto.CreateAddress(test.Address, 2), *outcome.ContractAddress)

	tx := fx.Chain.Submitted()[0]
	assert.Nil(t, tx.To())
	assert.Equal(t, uint64(contract.DefaultDeployGasLimit), tx.Gas())
	assert.Equal(t, common.FromHex(test.ContractBytecode), tx.Data()[:len(common.FromHex(test.ContractBytecode))])
	assert.Equal(t, common.LeftPadBytes([]byte{7}, 32), tx.Data()[len(common.FromHex(test.ContractBytecode)):])
}

func TestDeployInvalidKey(t *testing.T) {
	facade, fx := newFacade(t)

	_, err := facade.Deploy(t.Context(), "0xnothex", []any{1})
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindInvalidKey))
	assert.Zero(t, fx.Chain.NonceCalls.Load())
	assert.False(t, fx.Sequencer.State(test.Address).Seeded)
}

func TestDeployWithoutBytecode(t *testing.T) {
	fx := test.NewGatewayFixture(t, test.FastGatewayConfig())
	artifact, err := contract.ParseArtifact([]byte(test.ContractABI), "")
	require.NoError(t, err)

	facade := contract.NewFacade(fx.Chain, fx.Gateway, artifact, contract.Config{}, zerolog.Nop())

	_, err = facade.Deploy(t.Context(), test.PrivateKey, []any{1})
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindInvalidInput))
}

func TestSendRawTransaction(t *testing.T) {
	facade, fx := newFacade(t)

	outcome, err := facade.SendRawTransaction(t.Context(), test.PrivateKey,
		`{"to": "0x5FbDB2315678afecb367f032d93F642f64180aa3", "value": 1, "gas": 21000, "gasPrice": 1000000000}`)
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusConfirmed, outcome.Status)
	assert.Equal(t, big.NewInt(1), fx.Chain.Submitted()[0].Value())

	_, err = facade.SendRawTransaction(t.Context(), test.PrivateKey, "")
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.KindInvalidInput))
}
