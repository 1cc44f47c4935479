// Package repository applies decoded vault batches to a store and
// reassembles stored records into client views. Each exported method runs
// in a single store transaction, so a batch is applied completely or not
// at all and readers never see it half done.
package repository

import (
	"context"
	"fmt"

	"github.com/atinyakov/vaultkeeper/internal/models"
	"github.com/atinyakov/vaultkeeper/internal/store"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
	"github.com/atinyakov/vaultkeeper/internal/wire"
)

// VaultRepository implements vault synchronization against a store.Store.
type VaultRepository struct {
	// Store holds the vault maps.
	Store store.Store
}

// NewVaultRepository creates a VaultRepository over s.
func NewVaultRepository(s store.Store) *VaultRepository {
	return &VaultRepository{Store: s}
}

// SyncSpreadsheet upserts or tombstones spreadsheet cells of t.
func (r *VaultRepository) SyncSpreadsheet(ctx context.Context, t tenant.Key, cells []wire.Cell) error {
	return r.Store.Update(ctx, func(tx store.Tx) error {
		return putCells(tx.Map(store.SpreadsheetCells), t, cells)
	})
}

// DeleteSpreadsheetCells removes the named spreadsheet cells of t.
func (r *VaultRepository) DeleteSpreadsheetCells(ctx context.Context, t tenant.Key, coords []wire.Coord) error {
	return r.Store.Update(ctx, func(tx store.Tx) error {
		return deleteCells(tx.Map(store.SpreadsheetCells), t, coords)
	})
}

// SyncColumnInfo upserts or tombstones spreadsheet column display settings.
func (r *VaultRepository) SyncColumnInfo(ctx context.Context, t tenant.Key, cols []wire.ColumnInfo) error {
	return r.Store.Update(ctx, func(tx store.Tx) error {
		return putColumnInfos(tx.Map(store.SpreadsheetColumns), t, cols)
	})
}

// SyncLoginColumns upserts login column labels. An empty label removes
// the column and all of its cells.
func (r *VaultRepository) SyncLoginColumns(ctx context.Context, t tenant.Key, cols []wire.ColumnLabel) error {
	return r.Store.Update(ctx, func(tx store.Tx) error {
		return putLoginColumns(tx, t, cols)
	})
}

// DeleteLoginColumns removes the given login columns and their cells.
func (r *VaultRepository) DeleteLoginColumns(ctx context.Context, t tenant.Key, xs []uint8) error {
	return r.Store.Update(ctx, func(tx store.Tx) error {
		for _, x := range xs {
			if err := dropLoginColumn(tx, t, x); err != nil {
				return err
			}
		}
		return nil
	})
}

// SyncLoginCells upserts or tombstones login cells of t.
func (r *VaultRepository) SyncLoginCells(ctx context.Context, t tenant.Key, cells []wire.Cell) error {
	return r.Store.Update(ctx, func(tx store.Tx) error {
		return putCells(tx.Map(store.LoginCells), t, cells)
	})
}

// DeleteLoginCells removes the named login cells of t.
func (r *VaultRepository) DeleteLoginCells(ctx context.Context, t tenant.Key, coords []wire.Coord) error {
	return r.Store.Update(ctx, func(tx store.Tx) error {
		return deleteCells(tx.Map(store.LoginCells), t, coords)
	})
}

// SyncLogins applies login column labels, then login cells.
func (r *VaultRepository) SyncLogins(ctx context.Context, t tenant.Key, b wire.LoginBatch) error {
	return r.Store.Update(ctx, func(tx store.Tx) error {
		return putLogins(tx, t, b)
	})
}

// SyncNotes upserts or tombstones secure notes of t.
func (r *VaultRepository) SyncNotes(ctx context.Context, t tenant.Key, notes []wire.Note) error {
	return r.Store.Update(ctx, func(tx store.Tx) error {
		return putNotes(tx.Map(store.SecureNotes), t, notes)
	})
}

// SyncVaultNames names or unnames vaults of owner.
func (r *VaultRepository) SyncVaultNames(ctx context.Context, owner tenant.ID, names []wire.VaultName) error {
	return r.Store.Update(ctx, func(tx store.Tx) error {
		return putVaultNames(tx.Map(store.VaultNames), owner, names)
	})
}

// SyncGlobal applies a composite batch to t.
func (r *VaultRepository) SyncGlobal(ctx context.Context, t tenant.Key, g wire.GlobalBatch) error {
	return r.Store.Update(ctx, func(tx store.Tx) error {
		return putGlobal(tx, t, g)
	})
}

// DeleteVault removes every record of t and returns how many were removed.
func (r *VaultRepository) DeleteVault(ctx context.Context, t tenant.Key) (int, error) {
	var n int
	err := r.Store.Update(ctx, func(tx store.Tx) error {
		var err error
		n, err = deleteVault(tx, t)
		return err
	})
	return n, err
}

// PurgeUser deletes every named vault of owner and returns how many there were.
func (r *VaultRepository) PurgeUser(ctx context.Context, owner tenant.ID) (int, error) {
	var n int
	err := r.Store.Update(ctx, func(tx store.Tx) error {
		var err error
		n, err = purgeUser(tx, owner)
		return err
	})
	return n, err
}

// Spreadsheet returns the spreadsheet cells of t by column and row.
func (r *VaultRepository) Spreadsheet(ctx context.Context, t tenant.Key) (models.Spreadsheet, error) {
	var out models.Spreadsheet
	err := r.Store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = spreadsheet(tx, t)
		return err
	})
	return out, err
}

// ColumnInfo returns the spreadsheet column display settings of t.
func (r *VaultRepository) ColumnInfo(ctx context.Context, t tenant.Key) (models.Columns, error) {
	var out models.Columns
	err := r.Store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = columnInfo(tx, t)
		return err
	})
	return out, err
}

// Logins returns the login columns of t. It fails with ErrIntegrity if a
// stored login cell has no column label.
func (r *VaultRepository) Logins(ctx context.Context, t tenant.Key) (models.Logins, error) {
	var out models.Logins
	err := r.Store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = logins(tx, t)
		return err
	})
	return out, err
}

// Notes returns the secure notes of t.
func (r *VaultRepository) Notes(ctx context.Context, t tenant.Key) (models.Notes, error) {
	var out models.Notes
	err := r.Store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = notes(tx, t)
		return err
	})
	return out, err
}

// VaultNames returns the names of owner's vaults keyed by vault identifier.
func (r *VaultRepository) VaultNames(ctx context.Context, owner tenant.ID) (models.VaultNames, error) {
	out := models.VaultNames{}
	err := r.Store.View(ctx, func(tx store.Tx) error {
		keys, names, err := vaultNames(tx, owner)
		if err != nil {
			return err
		}
		for i, t := range keys {
			out[t.Vault().String()] = names[i]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VaultName returns the name of t, or nil if it has none.
func (r *VaultRepository) VaultName(ctx context.Context, t tenant.Key) ([]byte, error) {
	var out []byte
	err := r.Store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = vaultName(tx, t)
		return err
	})
	return out, err
}

// Vault returns the whole content of t.
func (r *VaultRepository) Vault(ctx context.Context, t tenant.Key) (models.Vault, error) {
	var out models.Vault
	err := r.Store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = vault(tx, t)
		return err
	})
	return out, err
}

// UserVaults returns every named vault of owner keyed by vault identifier.
func (r *VaultRepository) UserVaults(ctx context.Context, owner tenant.ID) (map[string]models.Vault, error) {
	out := map[string]models.Vault{}
	err := r.Store.View(ctx, func(tx store.Tx) error {
		keys, _, err := vaultNames(tx, owner)
		if err != nil {
			return err
		}
		for _, t := range keys {
			v, err := vault(tx, t)
			if err != nil {
				return fmt.Errorf("vault %s: %w", t, err)
			}
			out[t.Vault().String()] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
