package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/vaultkeeper/internal/certgen"
	"github.com/atinyakov/vaultkeeper/internal/client"
	"github.com/atinyakov/vaultkeeper/internal/keys"
	"github.com/atinyakov/vaultkeeper/internal/maintenance"
	"github.com/atinyakov/vaultkeeper/internal/models"
	"github.com/atinyakov/vaultkeeper/internal/repository"
	handler "github.com/atinyakov/vaultkeeper/internal/server/handler/http"
	"github.com/atinyakov/vaultkeeper/internal/service"
	"github.com/atinyakov/vaultkeeper/internal/store"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
	"github.com/atinyakov/vaultkeeper/internal/wire"
)

// startServer runs the full API over mutual TLS on a memory store.
func startServer(t *testing.T) (url, certDir string) {
	t.Helper()
	certDir = t.TempDir()
	_, err := certgen.EnsureBundle(certDir, []string{"localhost", "127.0.0.1"})
	require.NoError(t, err)

	log := zap.NewNop()
	st := store.NewMemory()
	maint := maintenance.New(st, "", 0, time.Minute, log)
	owners := service.NewOwnerService(repository.NewOwnerRepository(st), 10, log)
	deriver, err := keys.NewLocalDeriver([]byte("test secret"))
	require.NoError(t, err)

	router := handler.NewRouter(
		&handler.AuthHandler{OwnerService: owners, CertDir: certDir, Log: log},
		&handler.KeyHandler{KeyService: service.NewKeyService(repository.NewKeyRepository(st), deriver, owners, maint, log), Log: log},
		&handler.VaultHandler{VaultService: service.NewVaultService(repository.NewVaultRepository(st), maint, log), Log: log},
		log,
	)

	ts := httptest.NewUnstartedServer(router)
	ts.TLS, err = certgen.ServerTLSConfig(certDir)
	require.NoError(t, err)
	ts.StartTLS()
	t.Cleanup(ts.Close)
	return ts.URL, certDir
}

func registered(t *testing.T, url, certDir, login string) *client.Client {
	t.Helper()
	ctx := context.Background()
	out := t.TempDir()
	caPath := filepath.Join(certDir, certgen.CACertFile)
	require.NoError(t, client.Register(ctx, url, login, caPath, out))

	httpClient, err := client.LoadClientCertificate(filepath.Join(out, client.CertFile), filepath.Join(out, client.KeyFile), caPath)
	require.NoError(t, err)
	c := client.New(url, httpClient)
	require.NoError(t, c.Login(ctx))
	return c
}

func TestClient_VaultRoundTrip(t *testing.T) {
	ctx := context.Background()
	url, certDir := startServer(t)
	alice := registered(t, url, certDir, "alice")
	vault := tenant.ID("vault-1")

	require.NoError(t, alice.SetVaultNames(ctx, []wire.VaultName{{VaultID: vault, Name: []byte("Personal")}}))
	require.NoError(t, alice.SetCells(ctx, vault, []wire.Cell{{X: 0, Y: 0, Data: []byte("c00")}, {X: 1, Y: 2, Data: []byte("c12")}}))
	require.NoError(t, alice.SetColumns(ctx, vault, []wire.ColumnInfo{{X: 1, Hidden: true, Name: []byte("pin")}}))
	require.NoError(t, alice.SetLogins(ctx, vault, wire.LoginBatch{
		Columns: []wire.ColumnLabel{{X: 0, Label: []byte("site")}, {X: 1, Label: []byte("password")}},
		Cells:   []wire.Cell{{X: 0, Y: 0, Data: []byte("example.com")}, {X: 1, Y: 0, Data: []byte("hunter2")}},
	}))
	require.NoError(t, alice.SetNotes(ctx, vault, []wire.Note{{Index: 3, Label: []byte("wifi"), Body: []byte("pw")}}))
	require.NoError(t, alice.DeleteCells(ctx, vault, []wire.Coord{{X: 0, Y: 0}}))
	require.NoError(t, alice.DeleteLoginColumns(ctx, vault, []uint8{1}))

	got, err := alice.Vault(ctx, vault)
	require.NoError(t, err)
	assert.Equal(t, []byte("Personal"), got.Name)
	assert.Equal(t, models.Spreadsheet{1: {2: []byte("c12")}}, got.Spreadsheet)
	assert.Equal(t, models.Columns{1: {Name: []byte("pin"), Hidden: true}}, got.Columns)
	assert.Equal(t, models.Logins{0: {Label: []byte("site"), Rows: models.Rows{0: []byte("example.com")}}}, got.Logins)
	assert.Equal(t, models.Notes{3: {Label: []byte("wifi"), Body: []byte("pw")}}, got.Notes)

	names, err := alice.VaultNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.VaultNames{vault.String(): []byte("Personal")}, names)
}

func TestClient_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	url, certDir := startServer(t)
	alice := registered(t, url, certDir, "alice")
	bob := registered(t, url, certDir, "bob")
	vault := tenant.ID("shared-id")

	require.NoError(t, alice.SetCells(ctx, vault, []wire.Cell{{X: 0, Y: 0, Data: []byte("alice")}}))
	require.NoError(t, bob.SetCells(ctx, vault, []wire.Cell{{X: 0, Y: 0, Data: []byte("bob")}}))
	require.NoError(t, bob.DeleteVault(ctx, vault))

	got, err := alice.Vault(ctx, vault)
	require.NoError(t, err)
	assert.Equal(t, models.Spreadsheet{0: {0: []byte("alice")}}, got.Spreadsheet)

	got, err = bob.Vault(ctx, vault)
	require.NoError(t, err)
	assert.Empty(t, got.Spreadsheet)
}

func TestClient_SyncAndPurge(t *testing.T) {
	ctx := context.Background()
	url, certDir := startServer(t)
	alice := registered(t, url, certDir, "alice")
	a, b := tenant.ID("a"), tenant.ID("b")

	require.NoError(t, alice.SetVaultNames(ctx, []wire.VaultName{{VaultID: a, Name: []byte("A")}, {VaultID: b, Name: []byte("B")}}))
	require.NoError(t, alice.Sync(ctx, a, wire.GlobalBatch{
		Spreadsheet: []wire.Cell{{X: 4, Y: 4, Data: []byte("x")}},
		Notes:       []wire.Note{{Index: 0, Label: []byte("n"), Body: []byte("b")}},
	}))

	vaults, err := alice.Vaults(ctx)
	require.NoError(t, err)
	require.Len(t, vaults, 2)
	assert.Equal(t, models.Spreadsheet{4: {4: []byte("x")}}, vaults[a.String()].Spreadsheet)

	require.NoError(t, alice.Purge(ctx))
	names, err := alice.VaultNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	url, certDir := startServer(t)
	alice := registered(t, url, certDir, "alice")

	err := client.Register(ctx, url, "alice", filepath.Join(certDir, certgen.CACertFile), t.TempDir())
	var se *client.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Code)

	key, err := alice.Key(ctx)
	require.NoError(t, err)
	assert.Nil(t, key)

	_, err = alice.DeriveKey(ctx, models.KeyRequest{Input: []byte("x"), Scope: "owner", ScopeID: "bob", TransportKey: make([]byte, keys.TransportKeyLen)})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestClient_DeriveKeyOnce(t *testing.T) {
	ctx := context.Background()
	url, certDir := startServer(t)
	alice := registered(t, url, certDir, "alice")

	transport := make([]byte, keys.TransportKeyLen)
	transport[0] = 9
	req := models.KeyRequest{Input: []byte("device"), Scope: "owner", ScopeID: "alice", TransportKey: transport}
	first, err := alice.DeriveKey(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := alice.DeriveKey(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := alice.Key(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}
