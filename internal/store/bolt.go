package store

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// BoltStore keeps each map in its own bbolt bucket.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens or creates a bbolt database at path and ensures every
// bucket exists.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range Names {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// View runs fn in a read-only bbolt transaction.
func (s *BoltStore) View(_ context.Context, fn func(tx Tx) error) error {
	return s.db.View(func(btx *bbolt.Tx) error {
		return fn(boltTx{btx: btx})
	})
}

// Update runs fn in a read-write bbolt transaction.
func (s *BoltStore) Update(_ context.Context, fn func(tx Tx) error) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(boltTx{btx: btx})
	})
}

// Size returns the database file size.
func (s *BoltStore) Size(_ context.Context) (int64, error) {
	var size int64
	err := s.db.View(func(btx *bbolt.Tx) error {
		size = btx.Size()
		return nil
	})
	return size, err
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

type boltTx struct {
	btx *bbolt.Tx
}

func (tx boltTx) Map(name Name) Map {
	b := tx.btx.Bucket([]byte(name))
	if b == nil {
		panic(unknownMap(name))
	}
	return boltMap{b: b, writable: tx.btx.Writable()}
}

type boltMap struct {
	b        *bbolt.Bucket
	writable bool
}

func (m boltMap) Get(key []byte) ([]byte, error) {
	return m.b.Get(key), nil
}

func (m boltMap) Put(key, value []byte) error {
	if !m.writable {
		return ErrReadOnly
	}
	return m.b.Put(key, value)
}

func (m boltMap) Delete(key []byte) error {
	if !m.writable {
		return ErrReadOnly
	}
	return m.b.Delete(key)
}

func (m boltMap) ForEach(fn func(key, value []byte) error) error {
	return m.b.ForEach(fn)
}
