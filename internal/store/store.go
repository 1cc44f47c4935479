// Package store provides the durable ordered key-value maps the vault
// engine runs on. One Store holds every named map; each View or Update
// call runs as a single transaction across all of them.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrReadOnly is returned by mutating Map calls made inside View.
var ErrReadOnly = errors.New("store: read-only transaction")

// Name identifies one map inside a Store.
type Name string

// Maps used by the vault engine.
const (
	SpreadsheetCells   Name = "spreadsheet_cells"
	SpreadsheetColumns Name = "spreadsheet_columns"
	LoginCells         Name = "login_cells"
	LoginColumns       Name = "login_columns"
	SecureNotes        Name = "secure_notes"
	VaultNames         Name = "vault_names"
	OwnerKeys          Name = "owner_keys"
	Owners             Name = "owners"
)

// Names lists every map a Store must provide.
var Names = []Name{
	SpreadsheetCells,
	SpreadsheetColumns,
	LoginCells,
	LoginColumns,
	SecureNotes,
	VaultNames,
	OwnerKeys,
	Owners,
}

// Store is a set of named, byte-ordered maps with transactional access.
//
// Update transactions are serialized; View transactions may run
// concurrently with each other and see a consistent snapshot. If fn
// returns an error the transaction is rolled back.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	// Size reports the storage footprint in bytes.
	Size(ctx context.Context) (int64, error)
	Close() error
}

// Tx gives access to the maps within one transaction.
type Tx interface {
	Map(name Name) Map
}

// Map is one ordered key-value map.
//
// Slices returned by Get or passed to ForEach are only valid until the
// transaction ends and must not be modified. A Map must not be mutated
// from inside ForEach; collect keys first and remove them afterwards.
type Map interface {
	// Get returns nil if key is absent.
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	// Delete is a no-op if key is absent.
	Delete(key []byte) error
	// ForEach visits entries in ascending key order.
	ForEach(fn func(key, value []byte) error) error
}

// Open opens a Store for the given driver: "bolt", "leveldb", "postgres" or "memory".
// For postgres, location is the DSN; otherwise it is a filesystem path.
func Open(driver, location string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "bolt", "":
		s, err = OpenBolt(location)
	case "leveldb":
		s, err = OpenLevelDB(location)
	case "postgres":
		s, err = OpenPostgres(location)
	case "memory":
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func unknownMap(name Name) string {
	return fmt.Sprintf("store: unknown map %q", name)
}
