// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"net/http"

	"github.com/atinyakov/vaultkeeper/internal/tenant"
)

type ctxKey string

const ownerKey ctxKey = "owner"

// RegisterPath is served without a client certificate so that new
// owners can obtain one.
const RegisterPath = "/api/register"

// CertAuth is a middleware that enforces mutual TLS authentication.
//
// It checks whether the incoming HTTP request has a client certificate.
// RegisterPath is excluded from certificate validation to allow new
// owners to register and obtain a certificate.
//
// On success, the Common Name (CN) of the client's certificate becomes the
// owner identifier of the request and is stored in the request context.
func CertAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == RegisterPath {
			// Allow registration without certificate
			next.ServeHTTP(w, r)
			return
		}
		if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
			http.Error(w, "no client certificate provided", http.StatusUnauthorized)
			return
		}
		owner := tenant.ID(r.TLS.PeerCertificates[0].Subject.CommonName)
		if err := owner.Validate(); err != nil {
			http.Error(w, "invalid certificate subject", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}

// WithOwner returns a copy of ctx carrying owner.
func WithOwner(ctx context.Context, owner tenant.ID) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// OwnerFromContext extracts the owner identifier (Common Name from the
// client certificate) from the request context. Returns nil if not found.
func OwnerFromContext(ctx context.Context) tenant.ID {
	if id, ok := ctx.Value(ownerKey).(tenant.ID); ok {
		return id
	}
	return nil
}
