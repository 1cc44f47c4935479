package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    map TEXT NOT NULL,
    key BYTEA NOT NULL,
    value BYTEA NOT NULL,
    PRIMARY KEY (map, key)
);
`

// PostgresStore keeps every map in a single kv table. BYTEA compares
// byte-wise, so ORDER BY key gives the same order as the other backends.
type PostgresStore struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB

	mu sync.RWMutex
}

// OpenPostgres connects to dsn and creates the schema if needed.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return NewPostgres(db), nil
}

// NewPostgres wraps an existing connection whose schema is already in place.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// View runs fn in a read-only SQL transaction.
func (s *PostgresStore) View(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run(ctx, &sql.TxOptions{ReadOnly: true}, false, fn)
}

// Update runs fn in a read-write SQL transaction. Updates issued through
// one PostgresStore are serialized.
func (s *PostgresStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, nil, true, fn)
}

func (s *PostgresStore) run(ctx context.Context, opts *sql.TxOptions, writable bool, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(pgTx{ctx: ctx, tx: tx, writable: writable}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Size returns the total relation size of the kv table.
func (s *PostgresStore) Size(ctx context.Context) (int64, error) {
	var size int64
	err := s.DB.QueryRowContext(ctx, `SELECT pg_total_relation_size('kv')`).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("relation size: %w", err)
	}
	return size, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.DB.Close()
}

type pgTx struct {
	ctx      context.Context
	tx       *sql.Tx
	writable bool
}

func (t pgTx) Map(name Name) Map {
	for _, n := range Names {
		if n == name {
			return pgMap{t: t, name: string(name)}
		}
	}
	panic(unknownMap(name))
}

type pgMap struct {
	t    pgTx
	name string
}

func (m pgMap) Get(key []byte) ([]byte, error) {
	var value []byte
	err := m.t.tx.QueryRowContext(m.t.ctx,
		`SELECT value FROM kv WHERE map = $1 AND key = $2`, m.name, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", m.name, err)
	}
	return value, nil
}

func (m pgMap) Put(key, value []byte) error {
	if !m.t.writable {
		return ErrReadOnly
	}
	_, err := m.t.tx.ExecContext(m.t.ctx, `
		INSERT INTO kv (map, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (map, key) DO UPDATE SET value = EXCLUDED.value
	`, m.name, key, value)
	if err != nil {
		return fmt.Errorf("put %s: %w", m.name, err)
	}
	return nil
}

func (m pgMap) Delete(key []byte) error {
	if !m.t.writable {
		return ErrReadOnly
	}
	_, err := m.t.tx.ExecContext(m.t.ctx,
		`DELETE FROM kv WHERE map = $1 AND key = $2`, m.name, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", m.name, err)
	}
	return nil
}

type pgEntry struct {
	key, value []byte
}

// ForEach reads the whole map before calling fn, since a connection
// cannot run other statements while a result set is open.
func (m pgMap) ForEach(fn func(key, value []byte) error) error {
	rows, err := m.t.tx.QueryContext(m.t.ctx,
		`SELECT key, value FROM kv WHERE map = $1 ORDER BY key`, m.name)
	if err != nil {
		return fmt.Errorf("scan %s: %w", m.name, err)
	}
	var entries []pgEntry
	for rows.Next() {
		var e pgEntry
		if err := rows.Scan(&e.key, &e.value); err != nil {
			rows.Close()
			return fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("scan %s: %w", m.name, err)
	}
	rows.Close()

	for _, e := range entries {
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}
