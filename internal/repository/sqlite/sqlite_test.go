package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"employeedb/internal/batch"
	"employeedb/internal/domain"
	"employeedb/internal/repository"
)

var _ repository.Repository = (*Repository)(nil)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestDatabase creates a file-backed database under t.TempDir()
func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db := NewDatabase(filepath.Join(t.TempDir(), "employees.db"), DefaultPragmas())
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// newTestRepo creates a repository with the primary schema in place
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo := New(newTestDatabase(t))
	require.NoError(t, repo.CreateSchema(context.Background()))
	return repo
}

func countRows(t *testing.T, db *Database, table string) int {
	t.Helper()
	handle, err := db.Connect(context.Background())
	require.NoError(t, err)

	var n int
	require.NoError(t, handle.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func mustEmployee(t *testing.T, name, birth, gender string) domain.Employee {
	t.Helper()
	e, err := domain.ParseEmployee(name, birth, gender)
	require.NoError(t, err)
	return e
}

func names(employees []domain.Employee) []string {
	var out []string
	for _, e := range employees {
		out = append(out, e.FullName)
	}
	return out
}

// ============================================================================
// Schema Tests
// ============================================================================

func TestCreateSchemaIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.CreateSchema(context.Background()))
}

func TestSchemaRejectsUnknownGender(t *testing.T) {
	repo := newTestRepo(t)
	handle, err := repo.Database().Connect(context.Background())
	require.NoError(t, err)

	_, err = handle.Exec(`INSERT INTO employees (full_name, birth_date, gender) VALUES ('X', '2000-01-01', 'Other')`)
	assert.Error(t, err, "CHECK constraint must reject gender outside the enum")
}

// ============================================================================
// Insert Tests
// ============================================================================

func TestInsertOneFirstWriterWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inserted, err := repo.InsertOne(ctx, mustEmployee(t, "Smith John Carlson", "1990-05-15", "Male"))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertOne(ctx, mustEmployee(t, "Smith John Carlson", "1990-05-15", "Female"))
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate identity key is ignored")

	employees, err := repo.FetchUniqueSorted(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, domain.GenderMale, employees[0].Gender)
}

func TestInsertOneSameNameDifferentBirthDate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, birth := range []string{"1990-05-15", "1990-05-16"} {
		inserted, err := repo.InsertOne(ctx, mustEmployee(t, "Smith John Carlson", birth, "Male"))
		require.NoError(t, err)
		assert.True(t, inserted)
	}
	assert.Equal(t, 2, countRows(t, repo.Database(), "employees"))
}

func TestBulkInsertSkipsDuplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	employees := []domain.Employee{
		mustEmployee(t, "Adams Anna Evansa", "1980-01-01", "Female"),
		mustEmployee(t, "Adams Anna Evansa", "1980-01-01", "Male"),
		mustEmployee(t, "Baker Bob Howard", "1975-03-03", "Male"),
	}

	n, err := repo.BulkInsert(ctx, batch.FromSlice(employees), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, countRows(t, repo.Database(), "employees"))
}

func TestBulkInsertCountsAcrossBatches(t *testing.T) {
	const total = 50

	var employees []domain.Employee
	for i := 0; i < total; i++ {
		employees = append(employees, mustEmployee(t, fmt.Sprintf("Person %03d", i), "1990-01-01", "Male"))
	}
	// Duplicates inside one batch, across batches, and of rows already stored.
	dups := []domain.Employee{employees[0], employees[1], employees[49], employees[25]}
	input := append(slices.Clone(employees), dups...)

	for _, size := range []int{1, 3, 7, 10000} {
		t.Run(fmt.Sprintf("batch_%d", size), func(t *testing.T) {
			repo := newTestRepo(t)
			n, err := repo.BulkInsert(context.Background(), batch.FromSlice(input), size)
			require.NoError(t, err)
			assert.Equal(t, int64(len(input)-len(dups)), n)
			assert.Equal(t, total, countRows(t, repo.Database(), "employees"))

			n, err = repo.BulkInsert(context.Background(), batch.FromSlice(input), size)
			require.NoError(t, err)
			assert.Zero(t, n, "re-inserting only duplicates writes nothing")
		})
	}
}

func TestBulkInsertClampsOversizedBatches(t *testing.T) {
	repo := newTestRepo(t)

	var employees []domain.Employee
	for i := 0; i < maxBatchSize+5; i++ {
		employees = append(employees, mustEmployee(t, fmt.Sprintf("Person %06d", i), "1990-01-01", "Female"))
	}

	n, err := repo.BulkInsert(context.Background(), batch.FromSlice(employees), maxBatchSize*2)
	require.NoError(t, err)
	assert.Equal(t, int64(len(employees)), n)
}

func TestBulkInsertHonoursCancellation(t *testing.T) {
	repo := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := repo.BulkInsert(ctx, batch.FromSlice([]domain.Employee{
		mustEmployee(t, "Adams Anna Evansa", "1980-01-01", "Female"),
	}), 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

// ============================================================================
// Read Tests
// ============================================================================

func TestFetchUniqueSortedOrdersByName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	input := []domain.Employee{
		mustEmployee(t, "Charlie Carl Carlson", "1970-01-01", "Male"),
		mustEmployee(t, "alpha Ann Evansa", "1971-01-01", "Female"),
		mustEmployee(t, "Bravo Bob Howard", "1972-01-01", "Male"),
		mustEmployee(t, "Alpha Ann Evansa", "1973-01-01", "Female"),
		mustEmployee(t, "Alpha Ann Evansa", "1974-01-01", "Female"),
	}
	_, err := repo.BulkInsert(ctx, batch.FromSlice(input), 2)
	require.NoError(t, err)

	employees, err := repo.FetchUniqueSorted(ctx)
	require.NoError(t, err)
	require.Len(t, employees, len(input))

	got := names(employees)
	assert.True(t, sort.StringsAreSorted(got), "%v is not sorted", got)
	assert.Equal(t, "alpha Ann Evansa", got[len(got)-1], "ordering is bytewise")

	seen := map[domain.Key]bool{}
	for _, e := range employees {
		assert.False(t, seen[e.Key()], "duplicate key %v", e.Key())
		seen[e.Key()] = true
	}
}

func TestFetchUniqueSortedToleratesBypassedData(t *testing.T) {
	db := newTestDatabase(t)
	repo := New(db)
	ctx := context.Background()

	// Table as it would look before the unique index existed.
	handle, err := db.Connect(ctx)
	require.NoError(t, err)
	_, err = handle.Exec(`
		CREATE TABLE employees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			full_name TEXT NOT NULL,
			birth_date TEXT NOT NULL,
			gender TEXT NOT NULL
		);
		INSERT INTO employees (full_name, birth_date, gender) VALUES
			('Smith John Carlson', '1990-05-15', 'Female'),
			('Smith John Carlson', '1990-05-15', 'Male'),
			('Adams Anna Evansa', '1980-01-01', 'Female');
	`)
	require.NoError(t, err)

	employees, err := repo.FetchUniqueSorted(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "Adams Anna Evansa", employees[0].FullName)
	assert.Equal(t, domain.GenderFemale, employees[1].Gender, "lowest id represents the key")
}

func seedFilterData(t *testing.T, repo *Repository) []domain.Employee {
	t.Helper()
	input := []domain.Employee{
		mustEmployee(t, "Foster Fig Evans", "1970-01-01", "Male"),
		mustEmployee(t, "Fawson Henry Quincy", "1980-02-02", "Male"),
		mustEmployee(t, "Foster Fiona Evansa", "1970-01-01", "Female"),
		mustEmployee(t, "foster Fig Evans", "1990-03-03", "Male"),
		mustEmployee(t, "Garrison George Howard", "1960-04-04", "Male"),
		mustEmployee(t, "Eastwood Edward Evans", "1965-05-05", "Male"),
		mustEmployee(t, "F", "1999-09-09", "Male"),
	}
	_, err := repo.BulkInsert(context.Background(), batch.FromSlice(input), 3)
	require.NoError(t, err)
	return input
}

func TestFetchByGenderPrefix(t *testing.T) {
	repo := newTestRepo(t)
	seedFilterData(t, repo)

	employees, err := repo.FetchByGenderPrefix(context.Background(), domain.DefaultFilter)
	require.NoError(t, err)
	assert.Equal(t, []string{"F", "Fawson Henry Quincy", "Foster Fig Evans"}, names(employees))
	for _, e := range employees {
		assert.True(t, domain.DefaultFilter.Match(e))
	}
}

func TestFetchByGenderPrefixSameWithIndex(t *testing.T) {
	repo := newTestRepo(t)
	input := seedFilterData(t, repo)
	ctx := context.Background()

	filters := []domain.Filter{
		domain.DefaultFilter,
		{Gender: domain.GenderFemale, Prefix: "F"},
		{Gender: domain.GenderMale, Prefix: "Fo"},
		{Gender: domain.GenderMale, Prefix: "f"},
		{Gender: domain.GenderMale, Prefix: ""},
		{Gender: domain.GenderMale, Prefix: "Z"},
		{Gender: domain.GenderMale, Prefix: "\xff"},
	}

	before := make([][]domain.Employee, len(filters))
	for i, f := range filters {
		var err error
		before[i], err = repo.FetchByGenderPrefix(ctx, f)
		require.NoError(t, err)

		// Compare against a brute-force scan of the input.
		var want []string
		for _, e := range input {
			if f.Match(e) {
				want = append(want, e.FullName)
			}
		}
		sort.Strings(want)
		assert.Equal(t, want, names(before[i]), "filter %v", f)
	}

	require.NoError(t, repo.CreateFilterIndex(ctx))
	require.NoError(t, repo.CreateFilterIndex(ctx), "index creation is idempotent")

	for i, f := range filters {
		after, err := repo.FetchByGenderPrefix(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, before[i], after, "filter %v", f)
	}
}

func TestQueryPlanUsesFilterIndex(t *testing.T) {
	repo := newTestRepo(t)
	seedFilterData(t, repo)
	ctx := context.Background()

	plan, err := repo.QueryPlan(ctx, domain.DefaultFilter)
	require.NoError(t, err)
	assert.NotContains(t, strings.Join(plan, "\n"), "ix_employees_gender_fullname")

	require.NoError(t, repo.CreateFilterIndex(ctx))

	plan, err = repo.QueryPlan(ctx, domain.DefaultFilter)
	require.NoError(t, err)
	assert.Contains(t, strings.Join(plan, "\n"), "ix_employees_gender_fullname")
}

func TestCount(t *testing.T) {
	repo := newTestRepo(t)
	seedFilterData(t, repo)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestPrefixSuccessor(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
		ok     bool
	}{
		{"F", "G", true},
		{"Fo", "Fp", true},
		{"a\xff", "b", true},
		{"\xff\xff", "", false},
	}
	for _, tt := range tests {
		got, ok := prefixSuccessor(tt.prefix)
		assert.Equal(t, tt.ok, ok, "prefix %q", tt.prefix)
		assert.Equal(t, tt.want, got, "prefix %q", tt.prefix)
	}
}

func TestFilterClause(t *testing.T) {
	where, args := filterClause(domain.DefaultFilter)
	assert.Equal(t, `gender = ? AND full_name >= ? AND full_name < ?`, where)
	assert.Equal(t, []any{"Male", "F", "G"}, args)

	where, args = filterClause(domain.Filter{Gender: domain.GenderFemale})
	assert.Equal(t, `gender = ?`, where)
	assert.Equal(t, []any{"Female"}, args)
}

func TestInsertEmployeesSQL(t *testing.T) {
	assert.Equal(t,
		`INSERT OR IGNORE INTO employees (full_name, birth_date, gender) VALUES (?, ?, ?),(?, ?, ?)`,
		insertEmployeesSQL(2))
}
