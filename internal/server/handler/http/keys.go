package http

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/vaultkeeper/internal/keys"
	"github.com/atinyakov/vaultkeeper/internal/middleware"
	"github.com/atinyakov/vaultkeeper/internal/models"
	"github.com/atinyakov/vaultkeeper/internal/service"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
)

// KeyService defines the key operations required by KeyHandler.
type KeyService interface {
	GetKey(ctx context.Context, owner tenant.ID) ([]byte, error)
	DeriveKey(ctx context.Context, caller tenant.ID, req service.DeriveRequest) ([]byte, error)
}

// KeyHandler serves owner key blobs.
type KeyHandler struct {
	KeyService KeyService
	Log        *zap.Logger
}

// Derive handles POST /api/keys/derive. The body is a models.KeyRequest.
func (h *KeyHandler) Derive(w http.ResponseWriter, r *http.Request) {
	var req models.KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	scope, err := keys.ParseScope(req.Scope, []byte(req.ScopeID))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	blob, err := h.KeyService.DeriveKey(r.Context(), middleware.OwnerFromContext(r.Context()), service.DeriveRequest{
		Input:        req.Input,
		Scope:        scope,
		TransportKey: req.TransportKey,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, models.KeyResponse{Key: blob})
}

// Get handles GET /api/keys and returns the caller's stored key blob.
func (h *KeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	blob, err := h.KeyService.GetKey(r.Context(), middleware.OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if blob == nil {
		http.Error(w, "no key", http.StatusNotFound)
		return
	}
	writeJSON(w, models.KeyResponse{Key: blob})
}
