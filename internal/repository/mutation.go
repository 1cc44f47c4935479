package repository

import (
	"fmt"

	"github.com/atinyakov/vaultkeeper/internal/store"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
	"github.com/atinyakov/vaultkeeper/internal/wire"
)

// Mutations run inside a store transaction. A record with an empty
// payload, label or name removes its key; anything else overwrites it.

func putCells(m store.Map, t tenant.Key, cells []wire.Cell) error {
	for _, c := range cells {
		key := tenant.CellKey{X: c.X, Y: c.Y, Tenant: t}.Bytes()
		if err := upsert(m, key, c.Data); err != nil {
			return fmt.Errorf("cell (%d,%d): %w", c.X, c.Y, err)
		}
	}
	return nil
}

func deleteCells(m store.Map, t tenant.Key, coords []wire.Coord) error {
	for _, c := range coords {
		key := tenant.CellKey{X: c.X, Y: c.Y, Tenant: t}.Bytes()
		if err := m.Delete(key); err != nil {
			return fmt.Errorf("cell (%d,%d): %w", c.X, c.Y, err)
		}
	}
	return nil
}

// putLoginColumns stores login column labels. An empty label removes the
// column and cascades to its cells.
func putLoginColumns(tx store.Tx, t tenant.Key, cols []wire.ColumnLabel) error {
	m := tx.Map(store.LoginColumns)
	for _, c := range cols {
		if len(c.Label) == 0 {
			if err := dropLoginColumn(tx, t, c.X); err != nil {
				return err
			}
			continue
		}
		key := tenant.IndexKey{Index: c.X, Tenant: t}.Bytes()
		if err := m.Put(key, c.Label); err != nil {
			return fmt.Errorf("login column %d: %w", c.X, err)
		}
	}
	return nil
}

// dropLoginColumn removes the label of column x and every login cell in
// that column for t.
func dropLoginColumn(tx store.Tx, t tenant.Key, x uint8) error {
	key := tenant.IndexKey{Index: x, Tenant: t}.Bytes()
	if err := tx.Map(store.LoginColumns).Delete(key); err != nil {
		return fmt.Errorf("login column %d: %w", x, err)
	}
	_, err := sweep(tx.Map(store.LoginCells), func(k []byte) (bool, error) {
		ck, err := tenant.ParseCellKey(k)
		if err != nil {
			return false, err
		}
		return ck.X == x && ck.Tenant == t, nil
	})
	if err != nil {
		return fmt.Errorf("login column %d cells: %w", x, err)
	}
	return nil
}

func putLogins(tx store.Tx, t tenant.Key, b wire.LoginBatch) error {
	if err := putLoginColumns(tx, t, b.Columns); err != nil {
		return err
	}
	return putCells(tx.Map(store.LoginCells), t, b.Cells)
}

func putColumnInfos(m store.Map, t tenant.Key, cols []wire.ColumnInfo) error {
	for _, c := range cols {
		key := tenant.IndexKey{Index: c.X, Tenant: t}.Bytes()
		if len(c.Name) == 0 {
			if err := m.Delete(key); err != nil {
				return fmt.Errorf("column info %d: %w", c.X, err)
			}
			continue
		}
		v, err := tenant.EncodeValue(tenant.ColumnInfo{Hidden: c.Hidden, Name: c.Name})
		if err != nil {
			return err
		}
		if err := m.Put(key, v); err != nil {
			return fmt.Errorf("column info %d: %w", c.X, err)
		}
	}
	return nil
}

// putNotes stores secure notes. The label is the tombstone signal: an
// empty label deletes the note, an empty body is stored as is.
func putNotes(m store.Map, t tenant.Key, notes []wire.Note) error {
	for _, n := range notes {
		key := tenant.IndexKey{Index: n.Index, Tenant: t}.Bytes()
		if len(n.Label) == 0 {
			if err := m.Delete(key); err != nil {
				return fmt.Errorf("note %d: %w", n.Index, err)
			}
			continue
		}
		v, err := tenant.EncodeValue(tenant.Note{Label: n.Label, Body: n.Body})
		if err != nil {
			return err
		}
		if err := m.Put(key, v); err != nil {
			return fmt.Errorf("note %d: %w", n.Index, err)
		}
	}
	return nil
}

// putVaultNames names vaults of owner. Vault identifiers come from the
// batch, the owner never does.
func putVaultNames(m store.Map, owner tenant.ID, names []wire.VaultName) error {
	for _, n := range names {
		t, err := tenant.NewKey(owner, tenant.ID(n.VaultID))
		if err != nil {
			return fmt.Errorf("vault name: %w", err)
		}
		if err := upsert(m, tenant.VaultNameKey(t), n.Name); err != nil {
			return fmt.Errorf("vault name %s: %w", t, err)
		}
	}
	return nil
}

// putGlobal applies a composite batch in a fixed order: login cells,
// notes, login columns, spreadsheet cells, column info.
func putGlobal(tx store.Tx, t tenant.Key, g wire.GlobalBatch) error {
	if err := putCells(tx.Map(store.LoginCells), t, g.Logins.Cells); err != nil {
		return fmt.Errorf("login cells: %w", err)
	}
	if err := putNotes(tx.Map(store.SecureNotes), t, g.Notes); err != nil {
		return fmt.Errorf("notes: %w", err)
	}
	if err := putLoginColumns(tx, t, g.Logins.Columns); err != nil {
		return fmt.Errorf("login columns: %w", err)
	}
	if err := putCells(tx.Map(store.SpreadsheetCells), t, g.Spreadsheet); err != nil {
		return fmt.Errorf("spreadsheet: %w", err)
	}
	if err := putColumnInfos(tx.Map(store.SpreadsheetColumns), t, g.Columns); err != nil {
		return fmt.Errorf("column info: %w", err)
	}
	return nil
}

func upsert(m store.Map, key, value []byte) error {
	if len(value) == 0 {
		return m.Delete(key)
	}
	return m.Put(key, value)
}

// sweep removes every key of m for which match reports true. Keys are
// collected first since a map must not change while it is iterated.
func sweep(m store.Map, match func(key []byte) (bool, error)) (int, error) {
	var doomed [][]byte
	err := m.ForEach(func(k, _ []byte) error {
		ok, err := match(k)
		if err != nil {
			return err
		}
		if ok {
			doomed = append(doomed, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, k := range doomed {
		if err := m.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(doomed), nil
}
