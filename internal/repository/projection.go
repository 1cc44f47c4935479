package repository

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/atinyakov/vaultkeeper/internal/models"
	"github.com/atinyakov/vaultkeeper/internal/store"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
)

// ErrIntegrity reports stored records that contradict each other, such as
// a login cell whose column has no label. It means an earlier write went
// wrong, not that the caller did.
var ErrIntegrity = errors.New("repository: integrity violation")

// Every projection is a full scan of the relevant map filtered by exact
// tenant match. Values are copied out because store slices do not
// outlive the transaction.

func spreadsheet(tx store.Tx, t tenant.Key) (models.Spreadsheet, error) {
	return cells(tx.Map(store.SpreadsheetCells), t)
}

func cells(m store.Map, t tenant.Key) (models.Spreadsheet, error) {
	out := models.Spreadsheet{}
	err := m.ForEach(func(k, v []byte) error {
		ck, err := tenant.ParseCellKey(k)
		if err != nil {
			return err
		}
		if ck.Tenant != t {
			return nil
		}
		rows, ok := out[ck.X]
		if !ok {
			rows = models.Rows{}
			out[ck.X] = rows
		}
		rows[ck.Y] = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan cells: %w", err)
	}
	return out, nil
}

// logins merges login column labels with login cells. A cell in a column
// without a label fails with ErrIntegrity.
func logins(tx store.Tx, t tenant.Key) (models.Logins, error) {
	out := models.Logins{}
	err := tx.Map(store.LoginColumns).ForEach(func(k, v []byte) error {
		ik, err := tenant.ParseIndexKey(k)
		if err != nil {
			return err
		}
		if ik.Tenant != t {
			return nil
		}
		out[ik.Index] = models.LoginColumn{Label: bytes.Clone(v), Rows: models.Rows{}}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan login columns: %w", err)
	}

	grid, err := cells(tx.Map(store.LoginCells), t)
	if err != nil {
		return nil, err
	}
	for x, rows := range grid {
		col, ok := out[x]
		if !ok {
			return nil, fmt.Errorf("%w: %s: login cells in column %d without a label", ErrIntegrity, t, x)
		}
		for y, v := range rows {
			col.Rows[y] = v
		}
	}
	return out, nil
}

func notes(tx store.Tx, t tenant.Key) (models.Notes, error) {
	out := models.Notes{}
	err := tx.Map(store.SecureNotes).ForEach(func(k, v []byte) error {
		ik, err := tenant.ParseIndexKey(k)
		if err != nil {
			return err
		}
		if ik.Tenant != t {
			return nil
		}
		var n tenant.Note
		if err := tenant.DecodeValue(v, &n); err != nil {
			return err
		}
		out[ik.Index] = models.Note{Label: n.Label, Body: n.Body}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan notes: %w", err)
	}
	return out, nil
}

func columnInfo(tx store.Tx, t tenant.Key) (models.Columns, error) {
	out := models.Columns{}
	err := tx.Map(store.SpreadsheetColumns).ForEach(func(k, v []byte) error {
		ik, err := tenant.ParseIndexKey(k)
		if err != nil {
			return err
		}
		if ik.Tenant != t {
			return nil
		}
		var c tenant.ColumnInfo
		if err := tenant.DecodeValue(v, &c); err != nil {
			return err
		}
		out[ik.Index] = models.ColumnInfo{Name: c.Name, Hidden: c.Hidden}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan column info: %w", err)
	}
	return out, nil
}

// vaultNames lists the named vaults of owner, matching on the owner part
// of the key only.
func vaultNames(tx store.Tx, owner tenant.ID) ([]tenant.Key, [][]byte, error) {
	var (
		keys  []tenant.Key
		names [][]byte
	)
	err := tx.Map(store.VaultNames).ForEach(func(k, v []byte) error {
		if !tenant.HasOwner(k, owner) {
			return nil
		}
		t, err := tenant.ParseVaultNameKey(k)
		if err != nil {
			return err
		}
		keys = append(keys, t)
		names = append(names, bytes.Clone(v))
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan vault names: %w", err)
	}
	return keys, names, nil
}

func vaultName(tx store.Tx, t tenant.Key) ([]byte, error) {
	var name []byte
	err := tx.Map(store.VaultNames).ForEach(func(k, v []byte) error {
		if t.Matches(k) {
			name = bytes.Clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan vault names: %w", err)
	}
	return name, nil
}

func vault(tx store.Tx, t tenant.Key) (models.Vault, error) {
	var (
		v   models.Vault
		err error
	)
	if v.Name, err = vaultName(tx, t); err != nil {
		return models.Vault{}, err
	}
	if v.Spreadsheet, err = spreadsheet(tx, t); err != nil {
		return models.Vault{}, err
	}
	if v.Columns, err = columnInfo(tx, t); err != nil {
		return models.Vault{}, err
	}
	if v.Logins, err = logins(tx, t); err != nil {
		return models.Vault{}, err
	}
	if v.Notes, err = notes(tx, t); err != nil {
		return models.Vault{}, err
	}
	return v, nil
}
