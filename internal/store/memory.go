package store

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore is a transient Store for tests and throwaway instances.
// Each Update works on a copy of the maps that replaces the live set on
// success, so a failed Update leaves no trace.
type MemoryStore struct {
	mu   sync.RWMutex
	maps map[Name]map[string][]byte
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	s := &MemoryStore{maps: make(map[Name]map[string][]byte, len(Names))}
	for _, n := range Names {
		s.maps[n] = make(map[string][]byte)
	}
	return s
}

func (s *MemoryStore) View(_ context.Context, fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(memTx{maps: s.maps})
}

func (s *MemoryStore) Update(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(map[Name]map[string][]byte, len(s.maps))
	for n, m := range s.maps {
		snap[n] = maps.Clone(m)
	}
	if err := fn(memTx{maps: snap, writable: true}); err != nil {
		return err
	}
	s.maps = snap
	return nil
}

func (s *MemoryStore) Size(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.maps {
		for k, v := range m {
			n += int64(len(k) + len(v))
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }

type memTx struct {
	maps     map[Name]map[string][]byte
	writable bool
}

func (tx memTx) Map(name Name) Map {
	m, ok := tx.maps[name]
	if !ok {
		panic(unknownMap(name))
	}
	return memMap{m: m, writable: tx.writable}
}

type memMap struct {
	m        map[string][]byte
	writable bool
}

func (m memMap) Get(key []byte) ([]byte, error) {
	return m.m[string(key)], nil
}

func (m memMap) Put(key, value []byte) error {
	if !m.writable {
		return ErrReadOnly
	}
	m.m[string(key)] = slices.Clone(value)
	return nil
}

func (m memMap) Delete(key []byte) error {
	if !m.writable {
		return ErrReadOnly
	}
	delete(m.m, string(key))
	return nil
}

func (m memMap) ForEach(fn func(key, value []byte) error) error {
	for _, k := range slices.Sorted(maps.Keys(m.m)) {
		if err := fn([]byte(k), m.m[k]); err != nil {
			return err
		}
	}
	return nil
}
