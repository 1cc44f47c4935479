// Package service orchestrates vault operations: it decodes client
// batches, triggers resource maintenance and delegates storage to the
// repository interfaces defined here.
package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/vaultkeeper/internal/models"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
	"github.com/atinyakov/vaultkeeper/internal/wire"
	"go.uber.org/zap"
)

// VaultRepository defines the persistence operations needed by VaultService.
// Every method is atomic.
type VaultRepository interface {
	SyncSpreadsheet(ctx context.Context, t tenant.Key, cells []wire.Cell) error
	DeleteSpreadsheetCells(ctx context.Context, t tenant.Key, coords []wire.Coord) error
	SyncColumnInfo(ctx context.Context, t tenant.Key, cols []wire.ColumnInfo) error
	SyncLoginColumns(ctx context.Context, t tenant.Key, cols []wire.ColumnLabel) error
	DeleteLoginColumns(ctx context.Context, t tenant.Key, xs []uint8) error
	SyncLoginCells(ctx context.Context, t tenant.Key, cells []wire.Cell) error
	DeleteLoginCells(ctx context.Context, t tenant.Key, coords []wire.Coord) error
	SyncLogins(ctx context.Context, t tenant.Key, b wire.LoginBatch) error
	SyncNotes(ctx context.Context, t tenant.Key, notes []wire.Note) error
	SyncVaultNames(ctx context.Context, owner tenant.ID, names []wire.VaultName) error
	SyncGlobal(ctx context.Context, t tenant.Key, g wire.GlobalBatch) error
	DeleteVault(ctx context.Context, t tenant.Key) (int, error)
	PurgeUser(ctx context.Context, owner tenant.ID) (int, error)

	Spreadsheet(ctx context.Context, t tenant.Key) (models.Spreadsheet, error)
	ColumnInfo(ctx context.Context, t tenant.Key) (models.Columns, error)
	Logins(ctx context.Context, t tenant.Key) (models.Logins, error)
	Notes(ctx context.Context, t tenant.Key) (models.Notes, error)
	VaultNames(ctx context.Context, owner tenant.ID) (models.VaultNames, error)
	VaultName(ctx context.Context, t tenant.Key) ([]byte, error)
	Vault(ctx context.Context, t tenant.Key) (models.Vault, error)
	UserVaults(ctx context.Context, owner tenant.ID) (map[string]models.Vault, error)
}

// Maintainer is told about every state-changing operation before it runs.
// It must not block and its failures are its own business.
type Maintainer interface {
	Maintain(ctx context.Context)
}

// VaultService applies client batches to vaults and serves vault views.
type VaultService struct {
	repo  VaultRepository
	maint Maintainer
	log   *zap.Logger
}

// NewVaultService creates a VaultService.
func NewVaultService(repo VaultRepository, maint Maintainer, log *zap.Logger) *VaultService {
	return &VaultService{repo: repo, maint: maint, log: log}
}

// apply runs the common mutation path: an empty buffer does nothing,
// otherwise maintenance is triggered, the whole buffer is decoded and
// only then handed to store.
func apply[T any](ctx context.Context, s *VaultService, op string, buf []byte,
	decode func([]byte) (T, error), store func(T) error) error {
	if len(buf) == 0 {
		return nil
	}
	s.maint.Maintain(ctx)

	batch, err := decode(buf)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := store(batch); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("batch applied", zap.String("op", op), zap.Int("bytes", len(buf)))
	return nil
}

// SyncSpreadsheet applies a cell batch to the spreadsheet of t.
func (s *VaultService) SyncSpreadsheet(ctx context.Context, t tenant.Key, buf []byte) error {
	return apply(ctx, s, "sync spreadsheet", buf, wire.DecodeCells, func(cells []wire.Cell) error {
		return s.repo.SyncSpreadsheet(ctx, t, cells)
	})
}

// DeleteSpreadsheetCells applies a coordinate-delete batch to the spreadsheet of t.
func (s *VaultService) DeleteSpreadsheetCells(ctx context.Context, t tenant.Key, buf []byte) error {
	return apply(ctx, s, "delete spreadsheet cells", buf, wire.DecodeCoords, func(coords []wire.Coord) error {
		return s.repo.DeleteSpreadsheetCells(ctx, t, coords)
	})
}

// SyncColumnInfo applies a column-metadata batch to the spreadsheet of t.
func (s *VaultService) SyncColumnInfo(ctx context.Context, t tenant.Key, buf []byte) error {
	return apply(ctx, s, "sync column info", buf, wire.DecodeColumnInfos, func(cols []wire.ColumnInfo) error {
		return s.repo.SyncColumnInfo(ctx, t, cols)
	})
}

// SyncLoginColumns applies a login-metadata batch. Empty labels cascade.
func (s *VaultService) SyncLoginColumns(ctx context.Context, t tenant.Key, buf []byte) error {
	return apply(ctx, s, "sync login columns", buf, wire.DecodeColumnLabels, func(cols []wire.ColumnLabel) error {
		return s.repo.SyncLoginColumns(ctx, t, cols)
	})
}

// DeleteLoginColumns deletes every column named in a login-metadata
// batch, whatever its label, along with the column's cells.
func (s *VaultService) DeleteLoginColumns(ctx context.Context, t tenant.Key, buf []byte) error {
	return apply(ctx, s, "delete login columns", buf, wire.DecodeColumnLabels, func(cols []wire.ColumnLabel) error {
		xs := make([]uint8, len(cols))
		for i, c := range cols {
			xs[i] = c.X
		}
		return s.repo.DeleteLoginColumns(ctx, t, xs)
	})
}

// SyncLoginCells applies a cell batch to the login cells of t.
func (s *VaultService) SyncLoginCells(ctx context.Context, t tenant.Key, buf []byte) error {
	return apply(ctx, s, "sync login cells", buf, wire.DecodeCells, func(cells []wire.Cell) error {
		return s.repo.SyncLoginCells(ctx, t, cells)
	})
}

// DeleteLoginCells applies a coordinate-delete batch to the login cells of t.
func (s *VaultService) DeleteLoginCells(ctx context.Context, t tenant.Key, buf []byte) error {
	return apply(ctx, s, "delete login cells", buf, wire.DecodeCoords, func(coords []wire.Coord) error {
		return s.repo.DeleteLoginCells(ctx, t, coords)
	})
}

// SyncLogins applies a login full sync: metadata, then cells.
func (s *VaultService) SyncLogins(ctx context.Context, t tenant.Key, buf []byte) error {
	return apply(ctx, s, "sync logins", buf, wire.DecodeLogins, func(b wire.LoginBatch) error {
		return s.repo.SyncLogins(ctx, t, b)
	})
}

// SyncNotes applies a secure-note batch to t.
func (s *VaultService) SyncNotes(ctx context.Context, t tenant.Key, buf []byte) error {
	return apply(ctx, s, "sync notes", buf, wire.DecodeNotes, func(notes []wire.Note) error {
		return s.repo.SyncNotes(ctx, t, notes)
	})
}

// SyncVaultNames applies a vault-name batch to the vaults of owner.
func (s *VaultService) SyncVaultNames(ctx context.Context, owner tenant.ID, buf []byte) error {
	return apply(ctx, s, "sync vault names", buf, wire.DecodeVaultNames, func(names []wire.VaultName) error {
		return s.repo.SyncVaultNames(ctx, owner, names)
	})
}

// SyncGlobal applies a composite batch to t.
func (s *VaultService) SyncGlobal(ctx context.Context, t tenant.Key, buf []byte) error {
	return apply(ctx, s, "sync global", buf, wire.DecodeGlobal, func(g wire.GlobalBatch) error {
		return s.repo.SyncGlobal(ctx, t, g)
	})
}

// DeleteVault removes every record of t.
func (s *VaultService) DeleteVault(ctx context.Context, t tenant.Key) error {
	s.maint.Maintain(ctx)
	n, err := s.repo.DeleteVault(ctx, t)
	if err != nil {
		return fmt.Errorf("delete vault: %w", err)
	}
	s.log.Info("vault deleted", zap.Stringer("tenant", t), zap.Int("records", n))
	return nil
}

// PurgeUser deletes every named vault of owner.
func (s *VaultService) PurgeUser(ctx context.Context, owner tenant.ID) error {
	s.maint.Maintain(ctx)
	n, err := s.repo.PurgeUser(ctx, owner)
	if err != nil {
		return fmt.Errorf("purge user: %w", err)
	}
	s.log.Info("user purged", zap.Stringer("owner", owner), zap.Int("vaults", n))
	return nil
}

// Spreadsheet returns the spreadsheet view of t.
func (s *VaultService) Spreadsheet(ctx context.Context, t tenant.Key) (models.Spreadsheet, error) {
	return s.repo.Spreadsheet(ctx, t)
}

// ColumnInfo returns the column display settings of t.
func (s *VaultService) ColumnInfo(ctx context.Context, t tenant.Key) (models.Columns, error) {
	return s.repo.ColumnInfo(ctx, t)
}

// Logins returns the logins view of t.
func (s *VaultService) Logins(ctx context.Context, t tenant.Key) (models.Logins, error) {
	return s.repo.Logins(ctx, t)
}

// Notes returns the secure notes of t.
func (s *VaultService) Notes(ctx context.Context, t tenant.Key) (models.Notes, error) {
	return s.repo.Notes(ctx, t)
}

// VaultNames returns the names of owner's vaults.
func (s *VaultService) VaultNames(ctx context.Context, owner tenant.ID) (models.VaultNames, error) {
	return s.repo.VaultNames(ctx, owner)
}

// VaultName returns the name of t, or nil.
func (s *VaultService) VaultName(ctx context.Context, t tenant.Key) ([]byte, error) {
	return s.repo.VaultName(ctx, t)
}

// Vault returns the whole content of t.
func (s *VaultService) Vault(ctx context.Context, t tenant.Key) (models.Vault, error) {
	return s.repo.Vault(ctx, t)
}

// UserVaults returns every named vault of owner.
func (s *VaultService) UserVaults(ctx context.Context, owner tenant.ID) (map[string]models.Vault, error) {
	return s.repo.UserVaults(ctx, owner)
}
