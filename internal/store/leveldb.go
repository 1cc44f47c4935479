package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelPrefix splits the single LevelDB keyspace into maps.
// Never renumber: the prefixes are part of the on-disk format.
var levelPrefix = map[Name]byte{
	SpreadsheetCells:   'S',
	SpreadsheetColumns: 'C',
	LoginCells:         'L',
	LoginColumns:       'M',
	SecureNotes:        'N',
	VaultNames:         'V',
	OwnerKeys:          'K',
	Owners:             'O',
}

// LevelDBStore keeps every map in one LevelDB database, each under its
// own one-byte key prefix.
type LevelDBStore struct {
	mu sync.Mutex
	db *leveldb.DB
}

// OpenLevelDB opens or creates a LevelDB database at path.
func OpenLevelDB(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &LevelDBStore{db: db}, nil
}

// View runs fn against a consistent snapshot.
func (s *LevelDBStore) View(_ context.Context, fn func(tx Tx) error) error {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return fmt.Errorf("leveldb snapshot: %w", err)
	}
	defer snap.Release()
	return fn(levelTx{r: snap})
}

// Update runs fn inside a LevelDB transaction. Reads within fn observe
// the transaction's own writes.
func (s *LevelDBStore) Update(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, err := s.db.OpenTransaction()
	if err != nil {
		return fmt.Errorf("leveldb begin: %w", err)
	}
	if err := fn(levelTx{r: tr, w: tr}); err != nil {
		tr.Discard()
		return err
	}
	if err := tr.Commit(); err != nil {
		return fmt.Errorf("leveldb commit: %w", err)
	}
	return nil
}

// Size returns the approximate on-disk size of all maps.
func (s *LevelDBStore) Size(_ context.Context) (int64, error) {
	ranges := make([]util.Range, 0, len(levelPrefix))
	for _, p := range levelPrefix {
		ranges = append(ranges, *util.BytesPrefix([]byte{p}))
	}
	sizes, err := s.db.SizeOf(ranges)
	if err != nil {
		return 0, err
	}
	return sizes.Sum(), nil
}

// Close closes the database.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

// levelReader is satisfied by both *leveldb.Snapshot and *leveldb.Transaction.
type levelReader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

type levelTx struct {
	r levelReader
	w *leveldb.Transaction
}

func (tx levelTx) Map(name Name) Map {
	p, ok := levelPrefix[name]
	if !ok {
		panic(unknownMap(name))
	}
	return levelMap{tx: tx, prefix: p}
}

type levelMap struct {
	tx     levelTx
	prefix byte
}

func (m levelMap) key(k []byte) []byte {
	buf := make([]byte, 0, 1+len(k))
	buf = append(buf, m.prefix)
	return append(buf, k...)
}

func (m levelMap) Get(key []byte) ([]byte, error) {
	v, err := m.tx.r.Get(m.key(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (m levelMap) Put(key, value []byte) error {
	if m.tx.w == nil {
		return ErrReadOnly
	}
	return m.tx.w.Put(m.key(key), value, nil)
}

func (m levelMap) Delete(key []byte) error {
	if m.tx.w == nil {
		return ErrReadOnly
	}
	return m.tx.w.Delete(m.key(key), nil)
}

func (m levelMap) ForEach(fn func(key, value []byte) error) error {
	it := m.tx.r.NewIterator(util.BytesPrefix([]byte{m.prefix}), nil)
	defer it.Release()
	for it.Next() {
		if err := fn(it.Key()[1:], it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}
