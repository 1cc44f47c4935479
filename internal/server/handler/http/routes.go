package http

import (
	"net/http"

	"github.com/atinyakov/vaultkeeper/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the vault API. It applies content-type enforcement, request logging
// and certificate-based authentication, and mounts every endpoint under
// /api.
//
// Routes:
//
//	POST   /api/register                          → authHandler.Register (no certificate)
//	POST   /api/login                             → authHandler.Login
//	POST   /api/keys/derive, GET /api/keys        → keyHandler
//	POST   /api/vaults/names, GET /api/vaults/names
//	GET    /api/vaults, DELETE /api/vaults        → all vaults of the caller
//	GET    /api/vaults/{vault}, DELETE /api/vaults/{vault}
//	GET    /api/vaults/{vault}/name
//	POST   /api/vaults/{vault}/sync               → composite batch
//	...    spreadsheet, spreadsheet/columns, logins, notes (see below)
//
// Middleware chain (applied in order):
//  1. RequestID, Recoverer
//  2. AllowContentType(json, octet-stream); batch bodies are octet-stream
//  3. WithRequestLogging(logger)
//  4. CertAuth
func NewRouter(
	authHandler *AuthHandler,
	keyHandler *KeyHandler,
	vaultHandler *VaultHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json", "application/octet-stream"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	// Enforce certificate-based authentication
	r.Use(middleware.CertAuth)

	r.Route("/api", func(r chi.Router) {
		// Public endpoint
		r.Post("/register", authHandler.Register)

		r.Post("/login", authHandler.Login)

		r.Post("/keys/derive", keyHandler.Derive)
		r.Get("/keys", keyHandler.Get)

		r.Route("/vaults", func(r chi.Router) {
			h := vaultHandler
			s := vaultHandler.VaultService

			r.Get("/", h.UserVaults)
			r.Delete("/", h.PurgeUser)
			r.Post("/names", h.SyncVaultNames)
			r.Get("/names", h.VaultNames)

			r.Route("/{vault}", func(r chi.Router) {
				r.Get("/", view(h, s.Vault))
				r.Delete("/", h.DeleteVault)
				r.Get("/name", h.VaultName)
				r.Post("/sync", h.batch(s.SyncGlobal))

				r.Post("/spreadsheet", h.batch(s.SyncSpreadsheet))
				r.Get("/spreadsheet", view(h, s.Spreadsheet))
				r.Post("/spreadsheet/delete", h.batch(s.DeleteSpreadsheetCells))
				r.Post("/spreadsheet/columns", h.batch(s.SyncColumnInfo))
				r.Get("/spreadsheet/columns", view(h, s.ColumnInfo))

				r.Post("/logins", h.batch(s.SyncLogins))
				r.Get("/logins", view(h, s.Logins))
				r.Post("/logins/columns", h.batch(s.SyncLoginColumns))
				r.Post("/logins/columns/delete", h.batch(s.DeleteLoginColumns))
				r.Post("/logins/cells", h.batch(s.SyncLoginCells))
				r.Post("/logins/cells/delete", h.batch(s.DeleteLoginCells))

				r.Post("/notes", h.batch(s.SyncNotes))
				r.Get("/notes", view(h, s.Notes))
			})
		})
	})

	return r
}
