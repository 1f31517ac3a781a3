package signer

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

type service struct{}

// NewService creates a new signer service.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService() Service {
	return &service{}
}

// Address derives the account address of privateKey.
func (s *service) Address(_ context.Context, privateKey string) (common.Address, error) {
	key, err := toECDSA(privateKey)
	if err != nil {
		return common.Address{}, err
	}
	defer zeroKey(key)

	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// Sign signs an unsigned transaction request.
func (s *service) Sign(ctx context.Context, req *Request, privateKey string) (*SignedTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "signing aborted")
	}

	if req == nil || req.ChainID == nil {
		return nil, gwerr.New(gwerr.KindInvalidInput, "signer.sign", "chain id is required")
	}

	key, err := toECDSA(privateKey)
	if err != nil {
		return nil, err
	}
	defer zeroKey(key)

	derivedAddress := crypto.PubkeyToAddress(key.PublicKey)
	if req.From != (common.Address{}) && derivedAddress != req.From {
		return nil, gwerr.New(gwerr.KindInvalidInput, "signer.sign", "from address does not match private key")
	}

	return signTransaction(req, key, derivedAddress)
}

// toECDSA parses a hex encoded secp256k1 private key, with or without 0x.
func toECDSA(privateKey string) (*ecdsa.PrivateKey, error) {
	keyHex := strings.TrimSpace(privateKey)
	if !strings.HasPrefix(keyHex, "0x") && !strings.HasPrefix(keyHex, "0X") {
		keyHex = "0x" + keyHex
	}

	keyBytes, err := hexutil.Decode(keyHex)
	if err != nil {
		return nil, gwerr.Wrap(err, gwerr.KindInvalidKey, "signer.parseKey", "private key is not valid hex")
	}

	// Clear private key bytes after use
	defer func() {
		for i := range keyBytes {
			keyBytes[i] = 0
		}
	}()

	key, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, gwerr.Wrap(err, gwerr.KindInvalidKey, "signer.parseKey", "failed to convert private key to ECDSA")
	}

	return key, nil
}

func zeroKey(key *ecdsa.PrivateKey) {
	if key != nil && key.D != nil {
		key.D.SetInt64(0)
	}
}
