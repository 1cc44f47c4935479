package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/vaultkeeper/internal/store"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
)

// KeyRepository stores the encrypted key blob of each owner. Blobs are
// opaque and never interpreted here.
type KeyRepository struct {
	// Store holds the owner keys map.
	Store store.Store
}

// NewKeyRepository creates a KeyRepository over s.
func NewKeyRepository(s store.Store) *KeyRepository {
	return &KeyRepository{Store: s}
}

// GetKey returns the blob stored for owner, or nil if there is none.
func (r *KeyRepository) GetKey(ctx context.Context, owner tenant.ID) ([]byte, error) {
	var blob []byte
	err := r.Store.View(ctx, func(tx store.Tx) error {
		v, err := tx.Map(store.OwnerKeys).Get(tenant.OwnerKey(owner))
		if err != nil {
			return fmt.Errorf("get key: %w", err)
		}
		blob = bytes.Clone(v)
		return nil
	})
	return blob, err
}

// PutKey stores blob for owner unless a blob is already present, and
// returns whichever blob is stored afterwards. The first blob stored for
// an owner is never replaced.
func (r *KeyRepository) PutKey(ctx context.Context, owner tenant.ID, blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, errors.New("put key: empty blob")
	}
	var stored []byte
	err := r.Store.Update(ctx, func(tx store.Tx) error {
		m := tx.Map(store.OwnerKeys)
		key := tenant.OwnerKey(owner)
		v, err := m.Get(key)
		if err != nil {
			return fmt.Errorf("get key: %w", err)
		}
		if v != nil {
			stored = bytes.Clone(v)
			return nil
		}
		if err := m.Put(key, blob); err != nil {
			return fmt.Errorf("put key: %w", err)
		}
		stored = bytes.Clone(blob)
		return nil
	})
	return stored, err
}
