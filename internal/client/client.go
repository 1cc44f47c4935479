// Package client talks to the vault server over mutual TLS. Batches are
// encoded with the wire encoders; payloads are sent exactly as given.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/atinyakov/vaultkeeper/internal/models"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
	"github.com/atinyakov/vaultkeeper/internal/wire"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// Client is a vault API client.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

// New creates a Client for baseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{HTTP: httpClient, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

func (c *Client) send(ctx context.Context, path string, buf []byte) error {
	return c.do(ctx, http.MethodPost, path, "application/octet-stream", bytes.NewReader(buf), nil)
}

func vaultPath(vault tenant.ID, suffix string) string {
	return "/api/vaults/" + vault.String() + suffix
}

// Login confirms that the client certificate belongs to a registered owner.
func (c *Client) Login(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/login", "", nil, nil)
}

// DeriveKey requests the caller's key blob, deriving it on first use.
func (c *Client) DeriveKey(ctx context.Context, req models.KeyRequest) ([]byte, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var resp models.KeyResponse
	if err := c.do(ctx, http.MethodPost, "/api/keys/derive", "application/json", bytes.NewReader(b), &resp); err != nil {
		return nil, err
	}
	return resp.Key, nil
}

// Key returns the caller's stored key blob, or nil if there is none.
func (c *Client) Key(ctx context.Context) ([]byte, error) {
	var resp models.KeyResponse
	if err := c.get(ctx, "/api/keys", &resp); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return resp.Key, nil
}

// SetVaultNames names vaults of the caller. An empty name removes it.
func (c *Client) SetVaultNames(ctx context.Context, names []wire.VaultName) error {
	buf, err := wire.EncodeVaultNames(names)
	if err != nil {
		return err
	}
	return c.send(ctx, "/api/vaults/names", buf)
}

// VaultNames returns the caller's vault names keyed by vault identifier.
func (c *Client) VaultNames(ctx context.Context) (models.VaultNames, error) {
	var out models.VaultNames
	if err := c.get(ctx, "/api/vaults/names", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Vaults returns every named vault of the caller.
func (c *Client) Vaults(ctx context.Context) (map[string]models.Vault, error) {
	var out map[string]models.Vault
	if err := c.get(ctx, "/api/vaults", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Purge deletes every named vault of the caller.
func (c *Client) Purge(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/vaults", "", nil, nil)
}

// Vault returns the whole content of vault.
func (c *Client) Vault(ctx context.Context, vault tenant.ID) (models.Vault, error) {
	var out models.Vault
	if err := c.get(ctx, vaultPath(vault, ""), &out); err != nil {
		return models.Vault{}, err
	}
	return out, nil
}

// DeleteVault removes every record of vault.
func (c *Client) DeleteVault(ctx context.Context, vault tenant.ID) error {
	return c.do(ctx, http.MethodDelete, vaultPath(vault, ""), "", nil, nil)
}

// SetCells upserts spreadsheet cells. An empty payload deletes the cell.
func (c *Client) SetCells(ctx context.Context, vault tenant.ID, cells []wire.Cell) error {
	buf, err := wire.EncodeCells(cells)
	if err != nil {
		return err
	}
	return c.send(ctx, vaultPath(vault, "/spreadsheet"), buf)
}

// DeleteCells removes spreadsheet cells.
func (c *Client) DeleteCells(ctx context.Context, vault tenant.ID, coords []wire.Coord) error {
	return c.send(ctx, vaultPath(vault, "/spreadsheet/delete"), wire.EncodeCoords(coords))
}

// SetColumns updates spreadsheet column display settings.
func (c *Client) SetColumns(ctx context.Context, vault tenant.ID, cols []wire.ColumnInfo) error {
	buf, err := wire.EncodeColumnInfos(cols)
	if err != nil {
		return err
	}
	return c.send(ctx, vaultPath(vault, "/spreadsheet/columns"), buf)
}

// SetLogins applies login column labels, then login cells.
func (c *Client) SetLogins(ctx context.Context, vault tenant.ID, b wire.LoginBatch) error {
	buf, err := wire.EncodeLogins(b)
	if err != nil {
		return err
	}
	return c.send(ctx, vaultPath(vault, "/logins"), buf)
}

// DeleteLoginColumns removes login columns and their cells.
func (c *Client) DeleteLoginColumns(ctx context.Context, vault tenant.ID, xs []uint8) error {
	cols := make([]wire.ColumnLabel, len(xs))
	for i, x := range xs {
		cols[i] = wire.ColumnLabel{X: x}
	}
	buf, err := wire.EncodeColumnLabels(cols)
	if err != nil {
		return err
	}
	return c.send(ctx, vaultPath(vault, "/logins/columns/delete"), buf)
}

// DeleteLoginCells removes login cells.
func (c *Client) DeleteLoginCells(ctx context.Context, vault tenant.ID, coords []wire.Coord) error {
	return c.send(ctx, vaultPath(vault, "/logins/cells/delete"), wire.EncodeCoords(coords))
}

// SetNotes upserts secure notes. An empty label deletes the note.
func (c *Client) SetNotes(ctx context.Context, vault tenant.ID, notes []wire.Note) error {
	buf, err := wire.EncodeNotes(notes)
	if err != nil {
		return err
	}
	return c.send(ctx, vaultPath(vault, "/notes"), buf)
}

// Sync applies a composite batch to vault.
func (c *Client) Sync(ctx context.Context, vault tenant.ID, g wire.GlobalBatch) error {
	buf, err := wire.EncodeGlobal(g)
	if err != nil {
		return err
	}
	return c.send(ctx, vaultPath(vault, "/sync"), buf)
}
