package repository

import (
	"fmt"

	"github.com/atinyakov/vaultkeeper/internal/store"
	"github.com/atinyakov/vaultkeeper/internal/tenant"
)

var (
	cellMaps  = []store.Name{store.SpreadsheetCells, store.LoginCells}
	indexMaps = []store.Name{store.SpreadsheetColumns, store.LoginColumns, store.SecureNotes}
)

// deleteVault removes every record of t from the six vault maps and
// returns how many were removed.
func deleteVault(tx store.Tx, t tenant.Key) (int, error) {
	total := 0
	for _, name := range cellMaps {
		n, err := sweep(tx.Map(name), func(k []byte) (bool, error) {
			ck, err := tenant.ParseCellKey(k)
			if err != nil {
				return false, err
			}
			return ck.Tenant == t, nil
		})
		if err != nil {
			return 0, fmt.Errorf("sweep %s: %w", name, err)
		}
		total += n
	}
	for _, name := range indexMaps {
		n, err := sweep(tx.Map(name), func(k []byte) (bool, error) {
			ik, err := tenant.ParseIndexKey(k)
			if err != nil {
				return false, err
			}
			return ik.Tenant == t, nil
		})
		if err != nil {
			return 0, fmt.Errorf("sweep %s: %w", name, err)
		}
		total += n
	}
	n, err := sweep(tx.Map(store.VaultNames), func(k []byte) (bool, error) {
		return t.Matches(k), nil
	})
	if err != nil {
		return 0, fmt.Errorf("sweep %s: %w", store.VaultNames, err)
	}
	return total + n, nil
}

// purgeUser deletes every named vault of owner. It returns the number of
// vaults deleted.
func purgeUser(tx store.Tx, owner tenant.ID) (int, error) {
	keys, _, err := vaultNames(tx, owner)
	if err != nil {
		return 0, err
	}
	for _, t := range keys {
		if _, err := deleteVault(tx, t); err != nil {
			return 0, fmt.Errorf("delete vault %s: %w", t, err)
		}
	}
	return len(keys), nil
}
