package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "employees.db")
	db := NewDatabase(path, DefaultPragmas())
	t.Cleanup(func() { db.Close() })

	handle, err := db.Connect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, handle)

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
	assert.Equal(t, path, db.Path())
}

func TestConnectIsIdempotent(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	first, err := db.Connect(ctx)
	require.NoError(t, err)
	second, err := db.Connect(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestConnectAppliesPragmas(t *testing.T) {
	db := newTestDatabase(t)
	handle, err := db.Connect(context.Background())
	require.NoError(t, err)

	tests := []struct {
		pragma string
		want   string
	}{
		{"foreign_keys", "1"},
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"temp_store", "2"},  // MEMORY
		{"cache_size", "-65536"},
	}
	for _, tt := range tests {
		var got string
		require.NoError(t, handle.QueryRow("PRAGMA "+tt.pragma).Scan(&got))
		assert.Equal(t, tt.want, got, "PRAGMA %s", tt.pragma)
	}
}

func TestConnectFailsWhenParentIsAFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	db := NewDatabase(filepath.Join(blocker, "employees.db"), DefaultPragmas())
	_, err := db.Connect(context.Background())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestCloseAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "employees.db")
	db := NewDatabase(path, DefaultPragmas())
	ctx := context.Background()

	assert.NoError(t, db.Close(), "close before open is a no-op")

	require.NoError(t, db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`CREATE TABLE t (v INTEGER)`)
		return err
	}))
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	handle, err := db.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var n int
	require.NoError(t, handle.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 't'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestWithTransactionCommits(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`CREATE TABLE t (v INTEGER)`); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT INTO t VALUES (1), (2)`)
		return err
	}))

	assert.Equal(t, 2, countRows(t, db, "t"))
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`CREATE TABLE t (v INTEGER)`)
		return err
	}))

	bodyErr := errors.New("body failed")
	err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO t VALUES (1), (2), (3)`); err != nil {
			return err
		}
		return bodyErr
	})
	assert.Same(t, bodyErr, err, "body error is returned unchanged")
	assert.Equal(t, 0, countRows(t, db, "t"), "partial writes are discarded")

	// The connection is usable again after a rollback.
	require.NoError(t, db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO t VALUES (4)`)
		return err
	}))
	assert.Equal(t, 1, countRows(t, db, "t"))
}

func TestWithTransactionRejectsNesting(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	var inner error
	err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
		inner = db.WithTransaction(ctx, func(*sql.Tx) error { return nil })
		return inner
	})
	assert.ErrorIs(t, inner, ErrNestedTransaction)
	assert.ErrorIs(t, err, ErrNestedTransaction)

	// Guard is released once the outer transaction ends.
	assert.NoError(t, db.WithTransaction(ctx, func(*sql.Tx) error { return nil }))
}

func TestDefaultPragmaStatements(t *testing.T) {
	assert.Equal(t, []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA cache_size=-65536",
	}, DefaultPragmas().statements())
}

func TestIsFilePath(t *testing.T) {
	assert.True(t, isFilePath("employees.db"))
	assert.True(t, isFilePath("/var/lib/employees/employees.db"))
	assert.False(t, isFilePath(":memory:"))
	assert.False(t, isFilePath("file:test.db?mode=memory"))
	assert.False(t, isFilePath(""))
}
