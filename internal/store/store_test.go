package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/vaultkeeper/internal/store"
)

func backends(t *testing.T) map[string]func() store.Store {
	return map[string]func() store.Store{
		"memory": func() store.Store { return store.NewMemory() },
		"bolt": func() store.Store {
			s, err := store.OpenBolt(filepath.Join(t.TempDir(), "vault.db"))
			require.NoError(t, err)
			return s
		},
		"leveldb": func() store.Store {
			s, err := store.OpenLevelDB(filepath.Join(t.TempDir(), "vault.ldb"))
			require.NoError(t, err)
			return s
		},
	}
}

func keys(t *testing.T, s store.Store, name store.Name) []string {
	t.Helper()
	var out []string
	err := s.View(context.Background(), func(tx store.Tx) error {
		return tx.Map(name).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	require.NoError(t, err)
	return out
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			err := s.Update(ctx, func(tx store.Tx) error {
				m := tx.Map(store.SecureNotes)
				if err := m.Put([]byte("a"), []byte("1")); err != nil {
					return err
				}
				return m.Put([]byte("b"), []byte("2"))
			})
			require.NoError(t, err)

			err = s.View(ctx, func(tx store.Tx) error {
				v, err := tx.Map(store.SecureNotes).Get([]byte("a"))
				require.NoError(t, err)
				assert.Equal(t, []byte("1"), v)

				v, err = tx.Map(store.SecureNotes).Get([]byte("missing"))
				require.NoError(t, err)
				assert.Nil(t, v)

				// maps are disjoint
				v, err = tx.Map(store.VaultNames).Get([]byte("a"))
				require.NoError(t, err)
				assert.Nil(t, v)
				return nil
			})
			require.NoError(t, err)

			err = s.Update(ctx, func(tx store.Tx) error {
				m := tx.Map(store.SecureNotes)
				if err := m.Delete([]byte("a")); err != nil {
					return err
				}
				return m.Delete([]byte("never-there"))
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"b"}, keys(t, s, store.SecureNotes))
		})
	}
}

func TestStore_ForEachOrdered(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			err := s.Update(ctx, func(tx store.Tx) error {
				m := tx.Map(store.LoginCells)
				for _, k := range []string{"c", "a", "\x00z", "b", "ab"} {
					if err := m.Put([]byte(k), []byte("v")); err != nil {
						return err
					}
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"\x00z", "a", "ab", "b", "c"}, keys(t, s, store.LoginCells))
		})
	}
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			err := s.Update(ctx, func(tx store.Tx) error {
				return tx.Map(store.VaultNames).Put([]byte("keep"), []byte("1"))
			})
			require.NoError(t, err)

			err = s.Update(ctx, func(tx store.Tx) error {
				if err := tx.Map(store.VaultNames).Put([]byte("lost"), []byte("1")); err != nil {
					return err
				}
				if err := tx.Map(store.VaultNames).Delete([]byte("keep")); err != nil {
					return err
				}
				return boom
			})
			require.ErrorIs(t, err, boom)
			assert.Equal(t, []string{"keep"}, keys(t, s, store.VaultNames))
		})
	}
}

func TestStore_UpdateSeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			err := s.Update(ctx, func(tx store.Tx) error {
				m := tx.Map(store.Owners)
				require.NoError(t, m.Put([]byte("k"), []byte("v")))
				v, err := m.Get([]byte("k"))
				require.NoError(t, err)
				assert.Equal(t, []byte("v"), v)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestStore_ViewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			err := s.View(ctx, func(tx store.Tx) error {
				return tx.Map(store.Owners).Put([]byte("k"), []byte("v"))
			})
			assert.ErrorIs(t, err, store.ErrReadOnly)
		})
	}
}

func TestStore_Size(t *testing.T) {
	s := store.NewMemory()
	size, err := s.Size(context.Background())
	require.NoError(t, err)
	assert.Zero(t, size)

	err = s.Update(context.Background(), func(tx store.Tx) error {
		return tx.Map(store.SpreadsheetCells).Put([]byte("key"), []byte("value"))
	})
	require.NoError(t, err)

	size, err = s.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)
}

func TestOpen(t *testing.T) {
	s, err := store.Open("memory", "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.Open("bolt", filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = store.Open("redis", "")
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestOpenPostgres_ErrorPaths(t *testing.T) {
	cases := []struct {
		name       string
		dsn        string
		wantSubstr string
	}{
		{"invalid DSN", "some=random", "ping postgres"},
		{"empty DSN", "", "ping postgres"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.OpenPostgres(tc.dsn)
			if err == nil {
				t.Fatalf("OpenPostgres(%q) did not return error", tc.dsn)
			}
			assert.Contains(t, err.Error(), tc.wantSubstr)
		})
	}
}
