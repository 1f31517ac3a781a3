// Package journal records submitted transactions so that lifecycles whose
// finality is unknown can be settled later, by hash, after the caller has
// gone away.
package journal

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

const (
	// StoreTypeMemory keeps records in process memory only.
	StoreTypeMemory = "memory"
	// StoreTypeBolt persists records in a local bbolt file.
	StoreTypeBolt = "bolt"
)

// StatusSigned marks a record whose lifecycle has not yet submitted or
// given up on it. Such records are owned by that lifecycle and never listed
// as pending.
const StatusSigned = "signed"

// ErrNotFound is returned by Get for an unknown hash.
var ErrNotFound = errors.New("transaction not found in journal")

// Record is one submitted transaction.
type Record struct {
	Hash            common.Hash     `json:"hash"`
	From            common.Address  `json:"from"`
	Nonce           uint64          `json:"nonce"`
	Raw             hexutil.Bytes   `json:"raw"`       // signed bytes, resubmitted verbatim
	Broadcast       bool            `json:"broadcast"` // provider accepted the bytes at least once
	Deployment      bool            `json:"deployment"`
	ReconciledNonce bool            `json:"reconciled_nonce,omitempty"` // nonce was embedded by the caller
	Status          string          `json:"status"`
	Settled         bool            `json:"settled"` // terminal state known and nonce released
	BlockNumber     uint64          `json:"block_number,omitempty"`
	GasUsed         uint64          `json:"gas_used,omitempty"`
	ContractAddress *common.Address `json:"contract_address,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Store persists records keyed by transaction hash.
type Store interface {
	// Put inserts or replaces the record for rec.Hash.
	Put(ctx context.Context, rec *Record) error

	// Get returns the record for hash or ErrNotFound.
	Get(ctx context.Context, hash common.Hash) (*Record, error)

	// Pending returns all records that are neither settled nor still
	// StatusSigned, oldest first.
	Pending(ctx context.Context) ([]*Record, error)

	Close() error
}

// New opens a store of the given type. path is only used by StoreTypeBolt.
//
//nolint:ireturn
func New(storeType string, path string) (Store, error) {
	switch storeType {
	case "", StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeBolt:
		return NewBoltStore(path)
	default:
		return nil, errors.Errorf("unknown journal store type %q", storeType)
	}
}

func (r *Record) pending() bool {
	return !r.Settled && r.Status != StatusSigned
}

func clone(rec *Record) *Record {
	cp := *rec
	cp.Raw = common.CopyBytes(rec.Raw)
	if rec.ContractAddress != nil {
		addr := *rec.ContractAddress
		cp.ContractAddress = &addr
	}
	return &cp
}
