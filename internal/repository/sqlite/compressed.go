package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	"employeedb/internal/domain"
)

// CreateCompressedTable creates the compressed cache table keyed by the
// identity key, with a (gender, full_name) index so it filters without
// decompressing payloads.
func (r *Repository) CreateCompressedTable(ctx context.Context) error {
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS compressed_employees (
				full_name TEXT NOT NULL,
				birth_date TEXT NOT NULL,
				gender TEXT NOT NULL,
				payload BLOB NOT NULL,
				PRIMARY KEY (full_name, birth_date)
			) WITHOUT ROWID
		`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS ix_compressed_gender_fullname
			ON compressed_employees (gender, full_name)
		`)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create compressed table: %w", err)
	}
	return nil
}

// ReplaceCompressedRows atomically clears the compressed table and inserts
// rows. Rows repeating an identity key abort the whole refresh.
func (r *Repository) ReplaceCompressedRows(ctx context.Context, rows []domain.CompressedEmployee) (int64, error) {
	var inserted int64
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		inserted = 0
		if _, err := tx.ExecContext(ctx, `DELETE FROM compressed_employees`); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO compressed_employees (`+compressedColumns+`)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, row := range rows {
			res, err := stmt.ExecContext(ctx, compressedInsertArgs(row)...)
			if err != nil {
				return fmt.Errorf("insert %s (%s): %w", row.FullName, row.BirthDateString(), err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to replace compressed rows: %w", err)
	}

	log.WithField("rows", inserted).Debug("refreshed compressed table")
	return inserted, nil
}

// FetchCompressedSubset returns compressed rows matching f ordered by full
// name, payloads untouched.
func (r *Repository) FetchCompressedSubset(ctx context.Context, f domain.Filter) ([]domain.CompressedEmployee, error) {
	db, err := r.db.Connect(ctx)
	if err != nil {
		return nil, err
	}

	where, args := filterClause(f)
	rows, err := db.QueryContext(ctx, `
		SELECT `+compressedColumns+`
		FROM compressed_employees
		WHERE `+where+`
		ORDER BY full_name, birth_date
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query compressed employees: %w", err)
	}
	defer rows.Close()

	var result []domain.CompressedEmployee
	for rows.Next() {
		var row compressedRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan compressed employee: %w", err)
		}
		ce, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, ce)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating compressed employees: %w", err)
	}
	return result, nil
}

// CompressedTableStats returns the row count and total payload bytes
func (r *Repository) CompressedTableStats(ctx context.Context) (domain.CompressedStats, error) {
	db, err := r.db.Connect(ctx)
	if err != nil {
		return domain.CompressedStats{}, err
	}

	var stats domain.CompressedStats
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*), IFNULL(SUM(LENGTH(payload)), 0)
		FROM compressed_employees
	`).Scan(&stats.Rows, &stats.PayloadBytes)
	if err != nil {
		return domain.CompressedStats{}, fmt.Errorf("failed to query compressed stats: %w", err)
	}
	return stats, nil
}
