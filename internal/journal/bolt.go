package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const (
	// dbFileMode is the file mode for the database file (read-write for owner only)
	dbFileMode = 0600
	// dbOpenTimeout bounds waiting for the file lock held by another process
	dbOpenTimeout = 5 * time.Second
	bucketName    = "transactions"
)

// boltStore implements Store using bbolt. Values are JSON encoded records
// keyed by the raw 32 byte transaction hash.
type boltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the journal file at path.
//
//nolint:ireturn
func NewBoltStore(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("journal path is required for bolt store")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrap(err, "failed to create journal directory")
		}
	}

	db, err := bolt.Open(path, dbFileMode, &bolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &boltStore{db: db}, nil
}

func (b *boltStore) Put(_ context.Context, rec *Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode journal record")
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", bucketName)
		}
		return bucket.Put(rec.Hash.Bytes(), value)
	})
}

func (b *boltStore) Get(_ context.Context, hash common.Hash) (*Record, error) {
	var rec *Record
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", bucketName)
		}

		value := bucket.Get(hash.Bytes())
		if value == nil {
			return ErrNotFound
		}

		rec = new(Record)
		return json.Unmarshal(value, rec)
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

func (b *boltStore) Pending(_ context.Context) ([]*Record, error) {
	var pending []*Record
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", bucketName)
		}

		return bucket.ForEach(func(_, value []byte) error {
			rec := new(Record)
			if err := json.Unmarshal(value, rec); err != nil {
				return errors.Wrap(err, "failed to decode journal record")
			}
			if rec.pending() {
				pending = append(pending, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return pending, nil
}

func (b *boltStore) Close() error {
	return b.db.Close()
}
