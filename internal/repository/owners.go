package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/vaultkeeper/internal/store"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
)

// ErrAtCapacity is returned when registering a new owner would exceed
// the configured limit.
var ErrAtCapacity = errors.New("repository: owner registry at capacity")

// OwnerRepository keeps the registry of known owners.
type OwnerRepository struct {
	// Store holds the owners map.
	Store store.Store
	// Now returns the registration time. Defaults to time.Now.
	Now func() time.Time
}

// NewOwnerRepository creates an OwnerRepository over s.
func NewOwnerRepository(s store.Store) *OwnerRepository {
	return &OwnerRepository{Store: s, Now: time.Now}
}

// OwnerExists reports whether owner is registered.
func (r *OwnerRepository) OwnerExists(ctx context.Context, owner tenant.ID) (bool, error) {
	var exists bool
	err := r.Store.View(ctx, func(tx store.Tx) error {
		v, err := tx.Map(store.Owners).Get(tenant.OwnerKey(owner))
		exists = v != nil
		return err
	})
	return exists, err
}

// RegisterOwner records owner unless it is already known. A new owner is
// rejected with ErrAtCapacity once limit owners exist; limit <= 0 means
// no limit. It returns whether the owner was added and the resulting
// registry size.
func (r *OwnerRepository) RegisterOwner(ctx context.Context, owner tenant.ID, limit int) (bool, int, error) {
	if err := owner.Validate(); err != nil {
		return false, 0, err
	}
	var (
		added bool
		count int
	)
	err := r.Store.Update(ctx, func(tx store.Tx) error {
		m := tx.Map(store.Owners)
		key := tenant.OwnerKey(owner)

		err := m.ForEach(func(_, _ []byte) error {
			count++
			return nil
		})
		if err != nil {
			return fmt.Errorf("count owners: %w", err)
		}

		existing, err := m.Get(key)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		if limit > 0 && count >= limit {
			return ErrAtCapacity
		}

		v, err := tenant.EncodeValue(tenant.Owner{RegisteredAt: r.Now().UTC()})
		if err != nil {
			return err
		}
		if err := m.Put(key, v); err != nil {
			return fmt.Errorf("register owner: %w", err)
		}
		added = true
		count++
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return added, count, nil
}
