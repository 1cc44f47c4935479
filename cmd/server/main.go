// Package main initializes and starts the vault HTTPS server, setting up
// configuration, logging, the store, repositories, services, handlers
// and TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/vaultkeeper/internal/certgen"
	"github.com/atinyakov/vaultkeeper/internal/config"
	"github.com/atinyakov/vaultkeeper/internal/keys"
	"github.com/atinyakov/vaultkeeper/internal/logger"
	"github.com/atinyakov/vaultkeeper/internal/maintenance"
	"github.com/atinyakov/vaultkeeper/internal/repository"
	"github.com/atinyakov/vaultkeeper/internal/server/handler/http"
	"github.com/atinyakov/vaultkeeper/internal/service"
	"github.com/atinyakov/vaultkeeper/internal/store"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	if err := run(options, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(options *config.Options, zapLogger *zap.Logger) error {
	// Open the vault store.
	st, err := store.Open(options.StoreDriver, options.StoreLocation())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			zapLogger.Error("failed to close store", zap.Error(err))
		}
	}()
	zapLogger.Info("store opened", zap.String("driver", options.StoreDriver))

	// Resource maintenance runs before every mutation.
	notifier := maintenance.New(st, options.MaintenanceURL, options.StorageThreshold, maintenance.DefaultInterval, zapLogger)
	defer notifier.Wait()

	if options.KeySecret == "" {
		zapLogger.Warn("no key secret configured, derived keys will change on restart")
	}
	deriver, err := keys.NewLocalDeriver([]byte(options.KeySecret))
	if err != nil {
		return fmt.Errorf("init key deriver: %w", err)
	}

	// Initialize repositories.
	vaultRepo := repository.NewVaultRepository(st)
	ownerRepo := repository.NewOwnerRepository(st)
	keyRepo := repository.NewKeyRepository(st)

	// Initialize business-logic services.
	ownerService := service.NewOwnerService(ownerRepo, options.MaxOwners, zapLogger)
	keyService := service.NewKeyService(keyRepo, deriver, ownerService, notifier, zapLogger)
	vaultService := service.NewVaultService(vaultRepo, notifier, zapLogger)

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{OwnerService: ownerService, CertDir: options.CertDir, Log: zapLogger}
	keyHandler := &http.KeyHandler{KeyService: keyService, Log: zapLogger}
	vaultHandler := &http.VaultHandler{VaultService: vaultService, Log: zapLogger}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, keyHandler, vaultHandler, zapLogger)

	// Create the CA and server certificate on first start.
	created, err := certgen.EnsureBundle(options.CertDir, []string{"localhost", "127.0.0.1"})
	if err != nil {
		return fmt.Errorf("prepare certificates: %w", err)
	}
	if created {
		zapLogger.Info("certificate bundle created", zap.String("dir", options.CertDir))
	}
	tlsConfig, err := certgen.ServerTLSConfig(options.CertDir)
	if err != nil {
		return err
	}

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr))
		errc <- server.ListenAndServeTLS("", "")
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
