package signer

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

// signTransaction builds the typed transaction for req and signs it. The
// secp256k1 signature is RFC 6979 deterministic, so the same request and key
// always produce the same bytes.
func signTransaction(req *Request, key *ecdsa.PrivateKey, from common.Address) (*SignedTx, error) {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	var (
		//nolint:varnamelen // tx is a common abbreviation for transaction
		tx     *types.Transaction
		signer types.Signer
	)

	switch {
	case req.GasFeeCap != nil:
		tipCap := req.GasTipCap
		if tipCap == nil {
			tipCap = new(big.Int)
		}
		if tipCap.Cmp(req.GasFeeCap) > 0 {
			return nil, gwerr.New(gwerr.KindInvalidInput, "signer.sign", "max priority fee exceeds max fee")
		}

		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   req.ChainID,
			Nonce:     req.Nonce,
			GasTipCap: tipCap,
			GasFeeCap: req.GasFeeCap,
			Gas:       req.GasLimit,
			To:        req.To,
			Value:     value,
			Data:      req.Data,
		})
		signer = types.NewLondonSigner(req.ChainID)
	case req.GasPrice != nil:
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    req.Nonce,
			GasPrice: req.GasPrice,
			Gas:      req.GasLimit,
			To:       req.To,
			Value:    value,
			Data:     req.Data,
		})
		signer = types.NewEIP155Signer(req.ChainID)
	default:
		return nil, gwerr.New(gwerr.KindInvalidInput, "signer.sign", "gas price or fee cap is required")
	}

	signedTx, err := types.SignTx(tx, signer, key)
	if err != nil {
		return nil, gwerr.Wrap(err, gwerr.KindInvalidKey, "signer.sign", "failed to sign transaction")
	}

	// Encode transaction to its network representation
	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal transaction")
	}

	return &SignedTx{
		raw:   raw,
		hash:  signedTx.Hash(),
		from:  from,
		nonce: req.Nonce,
	}, nil
}

// FromTransaction wraps a transaction that was signed elsewhere. The sender
// is recovered from the signature.
func FromTransaction(tx *types.Transaction) (*SignedTx, error) {
	v, r, s := tx.RawSignatureValues()
	if r == nil || s == nil || (r.Sign() == 0 && s.Sign() == 0 && (v == nil || v.Sign() == 0)) {
		return nil, gwerr.New(gwerr.KindInvalidInput, "signer.fromTransaction", "transaction is not signed")
	}

	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, gwerr.Wrap(err, gwerr.KindInvalidInput, "signer.fromTransaction", "failed to recover sender")
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal transaction")
	}

	return &SignedTx{
		raw:   raw,
		hash:  tx.Hash(),
		from:  from,
		nonce: tx.Nonce(),
	}, nil
}
