package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/vaultkeeper/internal/middleware"
	"github.com/atinyakov/vaultkeeper/internal/models"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
)

// MaxBatchSize bounds the body of a batch upload.
const MaxBatchSize = 64 << 20

// VaultService defines the vault operations required by VaultHandler.
// Batch arguments are raw wire-format buffers.
type VaultService interface {
	SyncSpreadsheet(ctx context.Context, t tenant.Key, buf []byte) error
	DeleteSpreadsheetCells(ctx context.Context, t tenant.Key, buf []byte) error
	SyncColumnInfo(ctx context.Context, t tenant.Key, buf []byte) error
	SyncLoginColumns(ctx context.Context, t tenant.Key, buf []byte) error
	DeleteLoginColumns(ctx context.Context, t tenant.Key, buf []byte) error
	SyncLoginCells(ctx context.Context, t tenant.Key, buf []byte) error
	DeleteLoginCells(ctx context.Context, t tenant.Key, buf []byte) error
	SyncLogins(ctx context.Context, t tenant.Key, buf []byte) error
	SyncNotes(ctx context.Context, t tenant.Key, buf []byte) error
	SyncGlobal(ctx context.Context, t tenant.Key, buf []byte) error
	SyncVaultNames(ctx context.Context, owner tenant.ID, buf []byte) error
	DeleteVault(ctx context.Context, t tenant.Key) error
	PurgeUser(ctx context.Context, owner tenant.ID) error

	Spreadsheet(ctx context.Context, t tenant.Key) (models.Spreadsheet, error)
	ColumnInfo(ctx context.Context, t tenant.Key) (models.Columns, error)
	Logins(ctx context.Context, t tenant.Key) (models.Logins, error)
	Notes(ctx context.Context, t tenant.Key) (models.Notes, error)
	VaultNames(ctx context.Context, owner tenant.ID) (models.VaultNames, error)
	VaultName(ctx context.Context, t tenant.Key) ([]byte, error)
	Vault(ctx context.Context, t tenant.Key) (models.Vault, error)
	UserVaults(ctx context.Context, owner tenant.ID) (map[string]models.Vault, error)
}

// VaultHandler handles vault synchronization requests. The owner is
// always the caller; the vault comes from the {vault} URL parameter in
// base58.
type VaultHandler struct {
	VaultService VaultService
	Log          *zap.Logger
}

type batchFunc func(ctx context.Context, t tenant.Key, buf []byte) error

// tenantOf builds the tenant key of the request.
func tenantOf(r *http.Request) (tenant.Key, error) {
	vault, err := tenant.ParseID(chi.URLParam(r, "vault"))
	if err != nil {
		return tenant.Key{}, err
	}
	return tenant.NewKey(middleware.OwnerFromContext(r.Context()), vault)
}

func readBatch(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	buf, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBatchSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("batch exceeds %d bytes", tooLarge.Limit)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return buf, nil
}

// batch returns a handler that hands the request body to fn.
func (h *VaultHandler) batch(fn batchFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := tenantOf(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		buf, err := readBatch(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := fn(r.Context(), t, buf); err != nil {
			writeError(w, h.Log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// view returns a handler that writes the result of fn as JSON.
func view[T any](h *VaultHandler, fn func(ctx context.Context, t tenant.Key) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := tenantOf(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		v, err := fn(r.Context(), t)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		writeJSON(w, v)
	}
}

// VaultName handles GET /api/vaults/{vault}/name.
func (h *VaultHandler) VaultName(w http.ResponseWriter, r *http.Request) {
	t, err := tenantOf(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name, err := h.VaultService.VaultName(r.Context(), t)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, map[string][]byte{"name": name})
}

// DeleteVault handles DELETE /api/vaults/{vault}.
func (h *VaultHandler) DeleteVault(w http.ResponseWriter, r *http.Request) {
	t, err := tenantOf(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.VaultService.DeleteVault(r.Context(), t); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncVaultNames handles POST /api/vaults/names with a vault-name batch.
func (h *VaultHandler) SyncVaultNames(w http.ResponseWriter, r *http.Request) {
	buf, err := readBatch(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	owner := middleware.OwnerFromContext(r.Context())
	if err := h.VaultService.SyncVaultNames(r.Context(), owner, buf); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VaultNames handles GET /api/vaults/names.
func (h *VaultHandler) VaultNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.VaultService.VaultNames(r.Context(), middleware.OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, names)
}

// UserVaults handles GET /api/vaults.
func (h *VaultHandler) UserVaults(w http.ResponseWriter, r *http.Request) {
	vaults, err := h.VaultService.UserVaults(r.Context(), middleware.OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, vaults)
}

// PurgeUser handles DELETE /api/vaults: every named vault of the caller
// is deleted.
func (h *VaultHandler) PurgeUser(w http.ResponseWriter, r *http.Request) {
	if err := h.VaultService.PurgeUser(r.Context(), middleware.OwnerFromContext(r.Context())); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
