package signer_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
	"github/chapool/contract-gateway/internal/gateway/signer"
)

const (
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func legacyRequest() *signer.Request {
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	return &signer.Request{
		ChainID:  big.NewInt(250),
		To:       &to,
		Data:     []byte{0xca, 0xfe},
		Value:    big.NewInt(1),
		GasLimit: 21000,
		GasPrice: big.NewInt(1_000_000_000),
		Nonce:    7,
	}
}

func TestAddress(t *testing.T) {
	svc := signer.NewService()

	addr, err := svc.Address(t.Context(), testKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), addr)

	addr, err = svc.Address(t.Context(), "0x"+testKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), addr)
}

func TestSignIsDeterministic(t *testing.T) {
	svc := signer.NewService()

	first, err := svc.Sign(t.Context(), legacyRequest(), testKey)
	require.NoError(t, err)
	second, err := svc.Sign(t.Context(), legacyRequest(), testKey)
	require.NoError(t, err)

	assert.Equal(t, first.Raw(), second.Raw())
	assert.Equal(t, first.Hash(), second.Hash())
	assert.Equal(t, uint64(7), first.Nonce())
	assert.Equal(t, common.HexToAddress(testAddress), first.From())
}

func TestSignHashMatchesEnvelope(t *testing.T) {
	svc := signer.NewService()

	tests := []struct {
		name   string
		mutate func(*signer.Request)
		txType uint8
	}{
		{name: "legacy", mutate: func(*signer.Request) {}, txType: types.LegacyTxType},
		{name: "dynamic fee", mutate: func(r *signer.Request) {
			r.GasPrice = nil
			r.GasFeeCap = big.NewInt(2_000_000_000)
			r.GasTipCap = big.NewInt(1_000_000_000)
		}, txType: types.DynamicFeeTxType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := legacyRequest()
			tt.mutate(req)

			signed, err := svc.Sign(t.Context(), req, testKey)
			require.NoError(t, err)

			assert.Equal(t, crypto.Keccak256Hash(signed.Raw()), signed.Hash())

			decoded := new(types.Transaction)
			require.NoError(t, decoded.UnmarshalBinary(signed.Raw()))
			assert.Equal(t, tt.txType, decoded.Type())
			assert.Equal(t, uint64(7), decoded.Nonce())

			sender, err := types.Sender(types.LatestSignerForChainID(req.ChainID), decoded)
			require.NoError(t, err)
			assert.Equal(t, common.HexToAddress(testAddress), sender)
		})
	}
}

func TestRawIsACopy(t *testing.T) {
	signed, err := signer.NewService().Sign(t.Context(), legacyRequest(), testKey)
	require.NoError(t, err)

	raw := signed.Raw()
	raw[0] ^= 0xff
	assert.NotEqual(t, raw, signed.Raw())
}

func TestSignContractCreation(t *testing.T) {
	req := legacyRequest()
	req.To = nil

	signed, err := signer.NewService().Sign(t.Context(), req, testKey)
	require.NoError(t, err)

	decoded := new(types.Transaction)
	require.NoError(t, decoded.UnmarshalBinary(signed.Raw()))
	assert.Nil(t, decoded.To())
}

func TestSignErrors(t *testing.T) {
	svc := signer.NewService()

	tests := []struct {
		name string
		key  string
		req  func() *signer.Request
		kind gwerr.Kind
	}{
		{name: "non hex key", key: "zz", req: legacyRequest, kind: gwerr.KindInvalidKey},
		{name: "short key", key: "0x1234", req: legacyRequest, kind: gwerr.KindInvalidKey},
		{name: "zero key", key: "0x0000000000000000000000000000000000000000000000000000000000000000", req: legacyRequest, kind: gwerr.KindInvalidKey},
		{name: "from mismatch", key: testKey, req: func() *signer.Request {
			r := legacyRequest()
			r.From = common.HexToAddress("0x01")
			return r
		}, kind: gwerr.KindInvalidInput},
		{name: "missing fee", key: testKey, req: func() *signer.Request {
			r := legacyRequest()
			r.GasPrice = nil
			return r
		}, kind: gwerr.KindInvalidInput},
		{name: "tip above cap", key: testKey, req: func() *signer.Request {
			r := legacyRequest()
			r.GasPrice = nil
			r.GasFeeCap = big.NewInt(1)
			r.GasTipCap = big.NewInt(2)
			return r
		}, kind: gwerr.KindInvalidInput},
		{name: "missing chain id", key: testKey, req: func() *signer.Request {
			r := legacyRequest()
			r.ChainID = nil
			return r
		}, kind: gwerr.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Sign(t.Context(), tt.req(), tt.key)
			require.Error(t, err)
			assert.Equal(t, tt.kind, gwerr.KindOf(err))
		})
	}
}
