// Package http provides the HTTPS API of the vault service: owner
// registration, key derivation and vault synchronization.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/vaultkeeper/internal/certgen"
	"github.com/atinyakov/vaultkeeper/internal/middleware"
	"github.com/atinyakov/vaultkeeper/internal/service"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
)

// OwnerService defines the owner registry operations
// required by the HTTP handlers.
type OwnerService interface {
	// OwnerExists checks whether owner is registered.
	OwnerExists(context.Context, tenant.ID) (bool, error)
	// RegisterOwner registers owner, failing with service.ErrAtCapacity
	// when the registry is full.
	RegisterOwner(context.Context, tenant.ID) error
}

// AuthHandler handles HTTP requests for owner registration and login.
type AuthHandler struct {
	// OwnerService performs the underlying registry operations.
	OwnerService OwnerService
	// CertDir holds the CA certificate and key used to sign client certificates.
	CertDir string
	// Log receives server-side failures.
	Log *zap.Logger
}

// RegisterRequest represents the JSON payload for owner registration.
type RegisterRequest struct {
	// Login is the owner identifier to register; it becomes the CN of the
	// issued certificate.
	Login string `json:"login"`
}

// Register handles owner registration requests.
// It expects a JSON body with a "login" of 1 to 64 bytes.
// If the owner does not already exist and the registry has room, it
// generates a client certificate signed by the CA, records the owner and
// returns the PEM-encoded certificate and private key.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || tenant.ID(req.Login).Validate() != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	owner := tenant.ID(req.Login)

	// Check if owner already exists
	exists, err := h.OwnerService.OwnerExists(r.Context(), owner)
	if err != nil {
		h.Log.Error("owner lookup failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "user already exists", http.StatusConflict)
		return
	}

	// Load CA credentials for signing
	caCert, caKey, err := certgen.LoadCA(h.CertDir)
	if err != nil {
		h.Log.Error("failed to load CA", zap.Error(err))
		http.Error(w, "failed to load CA", http.StatusInternalServerError)
		return
	}

	// Generate owner certificate signed by the CA
	certPEM, keyPEM, err := certgen.IssueClientCertificate(req.Login, caCert, caKey)
	if err != nil {
		http.Error(w, "failed to generate certificate", http.StatusInternalServerError)
		return
	}

	if err := h.OwnerService.RegisterOwner(r.Context(), owner); err != nil {
		if errors.Is(err, service.ErrAtCapacity) {
			http.Error(w, "registry full", http.StatusConflict)
			return
		}
		h.Log.Error("failed to save owner", zap.Error(err))
		http.Error(w, "failed to save user", http.StatusInternalServerError)
		return
	}

	// Respond with the generated certificate and key
	writeJSON(w, map[string]string{
		"cert": string(certPEM),
		"key":  string(keyPEM),
	})
}

// Login confirms that the presented client certificate belongs to a
// registered owner.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r.Context())
	if owner == nil {
		http.Error(w, "client certificate required", http.StatusUnauthorized)
		return
	}

	exists, err := h.OwnerService.OwnerExists(r.Context(), owner)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "user not found", http.StatusForbidden)
		return
	}

	writeJSON(w, map[string]string{
		"status": "ok",
		"user":   string(owner),
	})
}
