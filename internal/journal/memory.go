package journal

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/puzpuzpuz/xsync/v3"
)

// memoryStore is an in-memory Store built on xsync.MapOf.
type memoryStore struct {
	xmap *xsync.MapOf[common.Hash, *Record]
}

// NewMemoryStore creates an empty in-memory journal.
//
//nolint:ireturn
func NewMemoryStore() Store {
	return &memoryStore{
		xmap: xsync.NewMapOf[common.Hash, *Record](),
	}
}

func (m *memoryStore) Put(_ context.Context, rec *Record) error {
	m.xmap.Store(rec.Hash, clone(rec))
	return nil
}

func (m *memoryStore) Get(_ context.Context, hash common.Hash) (*Record, error) {
	rec, ok := m.xmap.Load(hash)
	if !ok {
		return nil, ErrNotFound
	}
	return clone(rec), nil
}

func (m *memoryStore) Pending(_ context.Context) ([]*Record, error) {
	var pending []*Record
	m.xmap.Range(func(_ common.Hash, rec *Record) bool {
		if rec.pending() {
			pending = append(pending, clone(rec))
		}
		return true
	})

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return pending, nil
}

func (m *memoryStore) Close() error {
	return nil
}
