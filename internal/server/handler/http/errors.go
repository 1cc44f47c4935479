package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/vaultkeeper/internal/keys"
	"github.com/atinyakov/vaultkeeper/internal/repository"
	"github.com/atinyakov/vaultkeeper/internal/service"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
	"github.com/atinyakov/vaultkeeper/internal/wire"
)

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) int {
	var derr *service.DerivationError
	switch {
	case errors.Is(err, wire.ErrMalformed),
		errors.Is(err, tenant.ErrInvalidID),
		errors.Is(err, keys.ErrInvalidTransportKey),
		errors.Is(err, keys.ErrInputTooLarge),
		errors.Is(err, keys.ErrInvalidScope):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrScopeMismatch):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAtCapacity):
		return http.StatusServiceUnavailable
	case errors.As(err, &derr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError replies with the status for err. Server-side failures are
// logged and answered without detail.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	code := statusOf(err)
	if code < http.StatusInternalServerError {
		http.Error(w, err.Error(), code)
		return
	}
	if errors.Is(err, repository.ErrIntegrity) {
		log.Error("stored vault records are inconsistent", zap.Error(err))
	} else {
		log.Error("request failed", zap.Int("status", code), zap.Error(err))
	}
	http.Error(w, http.StatusText(code), code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
