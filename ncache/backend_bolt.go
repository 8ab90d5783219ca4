package ncache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var bucketData = []byte("data")

// BoltBackend stores the mapping in a bbolt database, one row per key.
// Each Store rewrites the bucket inside a single transaction.
type BoltBackend struct {
	path string

	mu     sync.Mutex
	db     *bbolt.DB
	closed bool
}

var _ Backend = (*BoltBackend)(nil)

// NewBoltBackend creates a bbolt backend at path. The database is opened on
// first use and stays open until Close; after Close every call but Path and
// Close returns ErrClosed.
func NewBoltBackend(path string) (*BoltBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return &BoltBackend{path: ExpandPath(path)}, nil
}

func (b *BoltBackend) open() (*bbolt.DB, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if b.db != nil {
		return b.db, nil
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0700); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	db, err := bbolt.Open(b.path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		if errors.Is(err, bbolt.ErrInvalid) || errors.Is(err, bbolt.ErrChecksum) || errors.Is(err, bbolt.ErrVersionMismatch) {
			return nil, &CorruptError{Path: b.path, Err: err}
		}
		return nil, fmt.Errorf("open database: %w", err)
	}
	b.db = db
	return db, nil
}

func (b *BoltBackend) Load() (map[string][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	m := map[string][]byte{}
	if _, err := os.Stat(b.path); os.IsNotExist(err) {
		return m, nil
	}
	db, err := b.open()
	if err != nil {
		return nil, err
	}
	err = db.View(func(tx *bbolt.Tx) error {
		bk := tx.Bucket(bucketData)
		if bk == nil {
			return nil
		}
		return bk.ForEach(func(k, v []byte) error {
			// Values are only valid for the life of the transaction.
			vv := make([]byte, len(v))
			copy(vv, v)
			m[string(k)] = vv
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read database: %w", err)
	}
	return m, nil
}

func (b *BoltBackend) Store(m map[string][]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.open()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketData) != nil {
			if err := tx.DeleteBucket(bucketData); err != nil {
				return err
			}
		}
		bk, err := tx.CreateBucket(bucketData)
		if err != nil {
			return err
		}
		for k, v := range m {
			if err := bk.Put([]byte(k), v); err != nil {
				return fmt.Errorf("put %q: %w", k, err)
			}
		}
		return nil
	})
}

func (b *BoltBackend) Remove() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if err := b.closeLocked(); err != nil {
		return err
	}
	err := os.Remove(b.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *BoltBackend) Path() string { return b.path }

func (b *BoltBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.closeLocked()
}

func (b *BoltBackend) closeLocked() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
