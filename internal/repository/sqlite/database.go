package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite
const DriverName = "sqlite"

var (
	// ErrStorageUnavailable wraps failures to create or open the store
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNestedTransaction is returned by WithTransaction when called from
	// inside another transaction body on the same Database
	ErrNestedTransaction = errors.New("nested transactions are not supported")
)

// Pragmas configure the physical connection. They are applied once per open.
type Pragmas struct {
	ForeignKeys bool
	JournalMode string
	Synchronous string
	TempStore   string
	// CacheSize follows SQLite semantics: negative values are KiB
	CacheSize int
}

// DefaultPragmas favour bulk-load throughput: WAL with relaxed fsync survives
// an application crash but not an OS or disk failure.
func DefaultPragmas() Pragmas {
	return Pragmas{
		ForeignKeys: true,
		JournalMode: "WAL",
		Synchronous: "NORMAL",
		TempStore:   "MEMORY",
		CacheSize:   -65536, // 64 MiB
	}
}

func (p Pragmas) statements() []string {
	fk := "OFF"
	if p.ForeignKeys {
		fk = "ON"
	}
	return []string{
		"PRAGMA foreign_keys=" + fk,
		"PRAGMA journal_mode=" + p.JournalMode,
		"PRAGMA synchronous=" + p.Synchronous,
		"PRAGMA temp_store=" + p.TempStore,
		fmt.Sprintf("PRAGMA cache_size=%d", p.CacheSize),
	}
}

// Database owns a single lazily-opened SQLite connection and the transaction
// boundaries over it. The zero value is not usable; construct with
// NewDatabase.
type Database struct {
	path    string
	pragmas Pragmas

	mu   sync.Mutex
	db   *sql.DB
	inTx atomic.Bool
}

// NewDatabase creates a Database for the store at path. Nothing is opened
// until Connect.
func NewDatabase(path string, pragmas Pragmas) *Database {
	return &Database{path: path, pragmas: pragmas}
}

// Path returns the configured store location
func (d *Database) Path() string {
	return d.path
}

// Connect opens the store on first call, creating its parent directory and
// applying pragmas, and returns the handle. Later calls return the same handle.
func (d *Database) Connect(ctx context.Context) (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return d.db, nil
	}

	if isFilePath(d.path) {
		if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create database directory: %w", ErrStorageUnavailable, err)
		}
	}

	db, err := sql.Open(DriverName, d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrStorageUnavailable, err)
	}

	// Pragmas are per connection; keep exactly one alive for the lifetime
	// of the handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range d.pragmas.statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: failed to apply %q: %w", ErrStorageUnavailable, stmt, err)
		}
	}

	log.WithFields(log.Fields{
		"path":    d.path,
		"journal": d.pragmas.JournalMode,
		"sync":    d.pragmas.Synchronous,
	}).Debug("opened database")

	d.db = db
	return db, nil
}

// WithTransaction runs body inside an explicit transaction. The transaction
// commits if body returns nil; otherwise it is rolled back and body's error
// is returned unchanged. Calls must not be nested.
func (d *Database) WithTransaction(ctx context.Context, body func(tx *sql.Tx) error) error {
	if !d.inTx.CompareAndSwap(false, true) {
		return ErrNestedTransaction
	}
	defer d.inTx.Store(false)

	db, err := d.Connect(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := body(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.WithFields(log.Fields{
				"err":      rbErr,
				"cause":    err,
				"database": d.path,
			}).Error("failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close releases the handle if open. It is safe to call repeatedly, and
// Connect may reopen the store afterwards.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// isFilePath reports whether path names a plain file whose parent directory
// should exist, as opposed to an in-memory database or a URI.
func isFilePath(path string) bool {
	return path != "" && path != ":memory:" && !strings.HasPrefix(path, "file:")
}
