package sqlite

import (
	"database/sql"
	"fmt"

	"employeedb/internal/domain"
)

// ============================================================================
// Employee Row Scanner
// ============================================================================

// employeeInsertCols and employeeRow.scanArgs() MUST stay in the same order:
// full_name, birth_date, gender
const employeeInsertCols = `full_name, birth_date, gender`

const employeeInsertColumns = 3

// employeeRow holds the columns of an employee query for scanning
type employeeRow struct {
	FullName  string
	BirthDate string
	Gender    string
}

// scanArgs returns pointers to all fields for sql.Scan()
func (r *employeeRow) scanArgs() []any {
	return []any{
		&r.FullName,  // 1
		&r.BirthDate, // 2
		&r.Gender,    // 3
	}
}

// toDomain re-validates the stored strings into a domain.Employee
func (r *employeeRow) toDomain() (domain.Employee, error) {
	e, err := domain.ParseEmployee(r.FullName, r.BirthDate, r.Gender)
	if err != nil {
		return domain.Employee{}, fmt.Errorf("decode employee row: %w", err)
	}
	return e, nil
}

// employeeInsertArgs returns: full_name, birth_date, gender
func employeeInsertArgs(e domain.Employee) []any {
	row := e.Row()
	return []any{row.FullName, row.BirthDate, row.Gender}
}

// scanEmployees drains and closes rows
func scanEmployees(rows *sql.Rows) ([]domain.Employee, error) {
	defer rows.Close()

	var employees []domain.Employee
	for rows.Next() {
		var row employeeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		e, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}
	return employees, nil
}

// ============================================================================
// Compressed Row Scanner
// ============================================================================

// compressedColumns MUST match compressedRow.scanArgs() and
// compressedInsertArgs() order: full_name, birth_date, gender, payload
const compressedColumns = `full_name, birth_date, gender, payload`

type compressedRow struct {
	employeeRow
	Payload []byte
}

func (r *compressedRow) scanArgs() []any {
	return append(r.employeeRow.scanArgs(), &r.Payload)
}

func (r *compressedRow) toDomain() (domain.CompressedEmployee, error) {
	e, err := r.employeeRow.toDomain()
	if err != nil {
		return domain.CompressedEmployee{}, err
	}
	return domain.CompressedEmployee{Employee: e, Payload: r.Payload}, nil
}

func compressedInsertArgs(c domain.CompressedEmployee) []any {
	return append(employeeInsertArgs(c.Employee), c.Payload)
}

// ============================================================================
// Filter Predicate
// ============================================================================

// filterClause renders f as a WHERE clause the (gender, full_name) index can
// satisfy: equality on gender and a half-open range on full_name. Unlike
// LIKE, the range comparison is case-sensitive under the BINARY collation.
func filterClause(f domain.Filter) (string, []any) {
	if f.Prefix == "" {
		return `gender = ?`, []any{string(f.Gender)}
	}
	if upper, ok := prefixSuccessor(f.Prefix); ok {
		return `gender = ? AND full_name >= ? AND full_name < ?`,
			[]any{string(f.Gender), f.Prefix, upper}
	}
	return `gender = ? AND full_name >= ?`, []any{string(f.Gender), f.Prefix}
}

// prefixSuccessor returns the smallest string greater than every string
// starting with prefix, comparing bytewise. ok is false when no such string
// exists (prefix is all 0xFF bytes).
func prefixSuccessor(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xFF {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}
