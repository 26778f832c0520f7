package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"

	log "github.com/sirupsen/logrus"

	"employeedb/internal/batch"
	"employeedb/internal/domain"
)

const (
	// DefaultBatchSize is the number of rows per multi-row INSERT in BulkInsert
	DefaultBatchSize = 10000

	// maxVariables is SQLite's default SQLITE_MAX_VARIABLE_NUMBER
	maxVariables = 32766
	// maxBatchSize keeps one multi-row INSERT under maxVariables
	maxBatchSize = maxVariables / employeeInsertColumns
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *Database
}

// New creates a repository over db. The caller owns db and closes it.
func New(db *Database) *Repository {
	return &Repository{db: db}
}

// Database returns the underlying connection manager
func (r *Repository) Database() *Database {
	return r.db
}

// CreateSchema creates the employees table and its identity-key unique index
func (r *Repository) CreateSchema(ctx context.Context) error {
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS employees (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				full_name TEXT NOT NULL,
				birth_date TEXT NOT NULL,
				gender TEXT NOT NULL CHECK (gender IN ('Male', 'Female'))
			)
		`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			CREATE UNIQUE INDEX IF NOT EXISTS ux_employees_fullname_birth
			ON employees (full_name, birth_date)
		`)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// InsertOne inserts e unless its identity key already exists. It returns
// true only when a new row was written.
func (r *Repository) InsertOne(ctx context.Context, e domain.Employee) (bool, error) {
	var inserted int64
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertEmployeesSQL(1), employeeInsertArgs(e)...)
		if err != nil {
			return err
		}
		inserted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to insert employee: %w", err)
	}
	return inserted > 0, nil
}

// BulkInsert consumes employees in groups of batchSize, writing each group
// with one multi-row INSERT OR IGNORE in its own transaction. It returns the
// number of rows actually written; duplicates are skipped and not counted.
//
// A failure aborts the remaining input. Groups committed before the failure
// stay committed and are included in the returned count.
func (r *Repository) BulkInsert(ctx context.Context, employees iter.Seq[domain.Employee], batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > maxBatchSize {
		log.WithFields(log.Fields{
			"requested": batchSize,
			"max":       maxBatchSize,
		}).Debug("clamping bulk insert batch size")
		batchSize = maxBatchSize
	}

	var total int64
	var batches int
	for group := range batch.Chunk(employees, batchSize) {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		var written int64
		err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
			args := make([]any, 0, len(group)*employeeInsertColumns)
			for _, e := range group {
				args = append(args, employeeInsertArgs(e)...)
			}
			res, err := tx.ExecContext(ctx, insertEmployeesSQL(len(group)), args...)
			if err != nil {
				return err
			}
			written, err = res.RowsAffected()
			return err
		})
		if err != nil {
			return total, fmt.Errorf("failed to insert batch %d: %w", batches, err)
		}

		total += written
		batches++
		log.WithFields(log.Fields{
			"batch":   batches,
			"rows":    len(group),
			"written": written,
		}).Debug("inserted employee batch")
	}

	return total, nil
}

// FetchUniqueSorted returns one employee per identity key, choosing the row
// with the lowest id, ordered by full name.
func (r *Repository) FetchUniqueSorted(ctx context.Context) ([]domain.Employee, error) {
	db, err := r.db.Connect(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT e.full_name, e.birth_date, e.gender
		FROM employees e
		JOIN (
			SELECT MIN(id) AS min_id
			FROM employees
			GROUP BY full_name, birth_date
		) uniq ON e.id = uniq.min_id
		ORDER BY e.full_name, e.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	return scanEmployees(rows)
}

// FetchByGenderPrefix returns employees matching f ordered by full name. The
// result is identical with or without the filter index.
func (r *Repository) FetchByGenderPrefix(ctx context.Context, f domain.Filter) ([]domain.Employee, error) {
	db, err := r.db.Connect(ctx)
	if err != nil {
		return nil, err
	}

	where, args := filterClause(f)
	rows, err := db.QueryContext(ctx, `
		SELECT full_name, birth_date, gender
		FROM employees
		WHERE `+where+`
		ORDER BY full_name, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query filtered employees: %w", err)
	}
	return scanEmployees(rows)
}

// CreateFilterIndex creates the composite (gender, full_name) index used by
// FetchByGenderPrefix. It is idempotent.
func (r *Repository) CreateFilterIndex(ctx context.Context) error {
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS ix_employees_gender_fullname
			ON employees (gender, full_name)
		`)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create filter index: %w", err)
	}
	return nil
}

// QueryPlan returns SQLite's plan for the FetchByGenderPrefix query on the
// primary table, one detail line per step.
func (r *Repository) QueryPlan(ctx context.Context, f domain.Filter) ([]string, error) {
	db, err := r.db.Connect(ctx)
	if err != nil {
		return nil, err
	}

	where, args := filterClause(f)
	rows, err := db.QueryContext(ctx, `
		EXPLAIN QUERY PLAN
		SELECT full_name, birth_date, gender
		FROM employees
		WHERE `+where+`
		ORDER BY full_name, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to explain query: %w", err)
	}
	defer rows.Close()

	var plan []string
	for rows.Next() {
		var id, parent, notused int
		var detail string
		if err := rows.Scan(&id, &parent, &notused, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan query plan: %w", err)
		}
		plan = append(plan, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query plan: %w", err)
	}
	return plan, nil
}

// Count returns the number of rows in the employees table
func (r *Repository) Count(ctx context.Context) (int64, error) {
	db, err := r.db.Connect(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return n, nil
}

// Close releases the underlying database
func (r *Repository) Close() error {
	return r.db.Close()
}

// insertEmployeesSQL builds an INSERT OR IGNORE with n value tuples
func insertEmployeesSQL(n int) string {
	var b strings.Builder
	b.WriteString(`INSERT OR IGNORE INTO employees (` + employeeInsertCols + `) VALUES `)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("(?, ?, ?)")
	}
	return b.String()
}
