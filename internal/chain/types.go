// Package chain is the capability boundary over the remote JSON-RPC provider.
// Everything above it depends on Adapter only, never on the wire protocol.
// No retries happen here; errors are classified as ProviderUnavailable or
// ProviderRejected and surfaced with the provider's message.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Adapter defines the provider operations the gateway and facade need.
type Adapter interface {
	// ChainID returns the provider's chain id.
	ChainID(ctx context.Context) (*big.Int, error)

	// GetNonce returns the account's next nonce including pending transactions.
	GetNonce(ctx context.Context, address common.Address) (uint64, error)

	// SuggestGasPrice returns the provider's legacy gas price suggestion.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// SubmitRaw broadcasts signed transaction bytes and returns the provider-reported hash.
	SubmitRaw(ctx context.Context, raw []byte) (common.Hash, error)

	// GetReceipt returns the receipt for hash, or nil without error if absent.
	GetReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// GetLogs returns the logs emitted by address with topic0 eventID in [fromBlock, toBlock].
	GetLogs(ctx context.Context, query LogQuery) ([]types.Log, error)

	// Call simulates a message call against the latest block.
	Call(ctx context.Context, call CallRequest) ([]byte, error)

	// LatestBlock returns the current chain head number.
	LatestBlock(ctx context.Context) (uint64, error)

	// BalanceAt returns the balance of address at the latest block.
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)
}

// LogQuery selects the logs of one event signature emitted by one contract.
type LogQuery struct {
	Address   common.Address
	EventID   common.Hash
	FromBlock uint64
	ToBlock   uint64
}

// CallRequest is a read-only message call.
type CallRequest struct {
	From common.Address
	To   common.Address
	Data []byte
}
