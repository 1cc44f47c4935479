package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
	"github.com/urfave/cli"

	"github.com/atinyakov/vaultkeeper/internal/client"
	"github.com/atinyakov/vaultkeeper/internal/models"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
	"github.com/atinyakov/vaultkeeper/internal/wire"
)

var (
	ErrMissingLogin = errors.New("login is required")
	ErrMissingName  = errors.New("name is required")
	ErrMissingVault = errors.New("vault is required")
)

func config(c *cli.Context) *metadata {
	return c.App.Metadata["config"].(*metadata)
}

// connect builds an authenticated client from the global flags.
func (m *metadata) connect() (*client.Client, error) {
	httpClient, err := client.LoadClientCertificate(m.certFile, m.keyFile, m.caFile)
	if err != nil {
		return nil, err
	}
	return client.New(m.baseURL, httpClient), nil
}

func vaultOf(c *cli.Context) (tenant.ID, error) {
	s := c.String("vault")
	if s == "" {
		return nil, ErrMissingVault
	}
	return tenant.ParseID(s)
}

func byteFlag(c *cli.Context, name string) (uint8, error) {
	v := c.Uint(name)
	if v > math.MaxUint8 {
		return 0, fmt.Errorf("%s: %d is out of range", name, v)
	}
	return uint8(v), nil
}

func coordOf(c *cli.Context) (wire.Coord, error) {
	x, err := byteFlag(c, "x")
	if err != nil {
		return wire.Coord{}, err
	}
	y, err := byteFlag(c, "y")
	if err != nil {
		return wire.Coord{}, err
	}
	return wire.Coord{X: x, Y: y}, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func runRegister(c *cli.Context) error {
	m := config(c)
	login := c.String("login")
	if login == "" {
		return ErrMissingLogin
	}
	if err := client.Register(context.Background(), m.baseURL, login, m.caFile, c.String("dir")); err != nil {
		return err
	}
	fmt.Fprintln(m.w, "registration successful, certificate and key saved")
	return nil
}

func runLogin(c *cli.Context) error {
	m := config(c)
	cl, err := m.connect()
	if err != nil {
		return err
	}
	if err := cl.Login(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(m.w, "ok")
	return nil
}

func runVaultNew(c *cli.Context) error {
	m := config(c)
	name := c.String("name")
	if name == "" {
		return ErrMissingName
	}
	cl, err := m.connect()
	if err != nil {
		return err
	}
	id := uuid.New()
	vault := tenant.ID(id[:])
	if err := cl.SetVaultNames(context.Background(), []wire.VaultName{{VaultID: vault, Name: []byte(name)}}); err != nil {
		return err
	}
	fmt.Fprintln(m.w, vault.String())
	return nil
}

func runVaultRename(c *cli.Context) error {
	m := config(c)
	vault, err := vaultOf(c)
	if err != nil {
		return err
	}
	cl, err := m.connect()
	if err != nil {
		return err
	}
	return cl.SetVaultNames(context.Background(), []wire.VaultName{{VaultID: vault, Name: []byte(c.String("name"))}})
}

func runVaultNames(c *cli.Context) error {
	m := config(c)
	cl, err := m.connect()
	if err != nil {
		return err
	}
	names, err := cl.VaultNames(context.Background())
	if err != nil {
		return err
	}
	out := make(map[string]string, len(names))
	for id, name := range names {
		out[id] = string(name)
	}
	return printJSON(m.w, out)
}

func runVaultGet(c *cli.Context) error {
	m := config(c)
	vault, err := vaultOf(c)
	if err != nil {
		return err
	}
	cl, err := m.connect()
	if err != nil {
		return err
	}
	v, err := cl.Vault(context.Background(), vault)
	if err != nil {
		return err
	}
	return printJSON(m.w, v)
}

func runVaultAll(c *cli.Context) error {
	m := config(c)
	cl, err := m.connect()
	if err != nil {
		return err
	}
	vaults, err := cl.Vaults(context.Background())
	if err != nil {
		return err
	}
	return printJSON(m.w, vaults)
}

func runVaultDelete(c *cli.Context) error {
	m := config(c)
	vault, err := vaultOf(c)
	if err != nil {
		return err
	}
	cl, err := m.connect()
	if err != nil {
		return err
	}
	return cl.DeleteVault(context.Background(), vault)
}

func runVaultPurge(c *cli.Context) error {
	cl, err := config(c).connect()
	if err != nil {
		return err
	}
	return cl.Purge(context.Background())
}

func runCellSet(c *cli.Context) error {
	m := config(c)
	vault, err := vaultOf(c)
	if err != nil {
		return err
	}
	at, err := coordOf(c)
	if err != nil {
		return err
	}
	cl, err := m.connect()
	if err != nil {
		return err
	}
	cell := wire.Cell{X: at.X, Y: at.Y, Data: []byte(c.String("data"))}
	if c.Bool("login") {
		return cl.SetLogins(context.Background(), vault, wire.LoginBatch{Cells: []wire.Cell{cell}})
	}
	return cl.SetCells(context.Background(), vault, []wire.Cell{cell})
}

func runCellDelete(c *cli.Context) error {
	m := config(c)
	vault, err := vaultOf(c)
	if err != nil {
		return err
	}
	at, err := coordOf(c)
	if err != nil {
		return err
	}
	cl, err := m.connect()
	if err != nil {
		return err
	}
	if c.Bool("login") {
		return cl.DeleteLoginCells(context.Background(), vault, []wire.Coord{at})
	}
	return cl.DeleteCells(context.Background(), vault, []wire.Coord{at})
}

func runColumnLabel(c *cli.Context) error {
	m := config(c)
	vault, err := vaultOf(c)
	if err != nil {
		return err
	}
	x, err := byteFlag(c, "x")
	if err != nil {
		return err
	}
	cl, err := m.connect()
	if err != nil {
		return err
	}
	col := wire.ColumnLabel{X: x, Label: []byte(c.String("label"))}
	return cl.SetLogins(context.Background(), vault, wire.LoginBatch{Columns: []wire.ColumnLabel{col}})
}

func runColumnInfo(c *cli.Context) error {
	m := config(c)
	vault, err := vaultOf(c)
	if err != nil {
		return err
	}
	x, err := byteFlag(c, "x")
	if err != nil {
		return err
	}
	cl, err := m.connect()
	if err != nil {
		return err
	}
	info := wire.ColumnInfo{X: x, Hidden: c.Bool("hidden"), Name: []byte(c.String("name"))}
	return cl.SetColumns(context.Background(), vault, []wire.ColumnInfo{info})
}

func runNoteSet(c *cli.Context) error {
	m := config(c)
	vault, err := vaultOf(c)
	if err != nil {
		return err
	}
	index, err := byteFlag(c, "index")
	if err != nil {
		return err
	}
	cl, err := m.connect()
	if err != nil {
		return err
	}
	note := wire.Note{Index: index, Label: []byte(c.String("label")), Body: []byte(c.String("body"))}
	return cl.SetNotes(context.Background(), vault, []wire.Note{note})
}

func runKeyDerive(c *cli.Context) error {
	m := config(c)
	transport, err := hex.DecodeString(c.String("transport"))
	if err != nil {
		return fmt.Errorf("transport key: %w", err)
	}
	cl, err := m.connect()
	if err != nil {
		return err
	}
	blob, err := cl.DeriveKey(context.Background(), models.KeyRequest{
		Input:        []byte(c.String("input")),
		Scope:        c.String("scope"),
		ScopeID:      c.String("scope-id"),
		TransportKey: transport,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(m.w, hex.EncodeToString(blob))
	return nil
}

func runKeyGet(c *cli.Context) error {
	m := config(c)
	cl, err := m.connect()
	if err != nil {
		return err
	}
	blob, err := cl.Key(context.Background())
	if err != nil {
		return err
	}
	if blob == nil {
		return errors.New("no key stored")
	}
	fmt.Fprintln(m.w, hex.EncodeToString(blob))
	return nil
}
