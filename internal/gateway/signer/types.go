package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Service provides transaction signing functionality. The private key is
// passed per call and is held only for the duration of that call.
type Service interface {
	// Address derives the account address of privateKey.
	Address(ctx context.Context, privateKey string) (common.Address, error)

	// Sign signs req with privateKey. Identical inputs yield byte-identical output.
	Sign(ctx context.Context, req *Request, privateKey string) (*SignedTx, error)
}

// Request is an unsigned transaction with every field already filled in.
// GasFeeCap selects an EIP-1559 transaction; otherwise GasPrice is used.
type Request struct {
	ChainID   *big.Int        // Chain ID the signature is bound to (EIP-155)
	From      common.Address  // Expected signer; zero skips the check
	To        *common.Address // Recipient, nil for contract creation
	Data      []byte          // Call data or deployment bytecode
	Value     *big.Int        // Amount in wei, nil means zero
	GasLimit  uint64          // Gas limit
	GasPrice  *big.Int        // Legacy gas price in wei
	GasFeeCap *big.Int        // EIP-1559 max fee per gas in wei
	GasTipCap *big.Int        // EIP-1559 max priority fee per gas in wei
	Nonce     uint64          // Transaction nonce
}

// SignedTx is an immutable signed transaction envelope.
type SignedTx struct {
	raw   []byte
	hash  common.Hash
	from  common.Address
	nonce uint64
}

// Raw returns a copy of the encoded transaction, ready for eth_sendRawTransaction.
func (s *SignedTx) Raw() []byte {
	return common.CopyBytes(s.raw)
}

// Hash returns the transaction hash computed once at signing time.
func (s *SignedTx) Hash() common.Hash {
	return s.hash
}

// From returns the signing account.
func (s *SignedTx) From() common.Address {
	return s.from
}

// Nonce returns the nonce the transaction was signed with.
func (s *SignedTx) Nonce() uint64 {
	return s.nonce
}
