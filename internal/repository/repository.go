package repository

import (
	"context"
	"iter"

	"employeedb/internal/domain"
)

// Repository defines the interface for employee data access
type Repository interface {
	// Schema
	CreateSchema(ctx context.Context) error
	CreateFilterIndex(ctx context.Context) error

	// Write operations
	InsertOne(ctx context.Context, e domain.Employee) (bool, error)
	BulkInsert(ctx context.Context, employees iter.Seq[domain.Employee], batchSize int) (int64, error)

	// Read operations
	FetchUniqueSorted(ctx context.Context) ([]domain.Employee, error)
	FetchByGenderPrefix(ctx context.Context, f domain.Filter) ([]domain.Employee, error)

	// Compressed cache
	CreateCompressedTable(ctx context.Context) error
	ReplaceCompressedRows(ctx context.Context, rows []domain.CompressedEmployee) (int64, error)
	FetchCompressedSubset(ctx context.Context, f domain.Filter) ([]domain.CompressedEmployee, error)
	CompressedTableStats(ctx context.Context) (domain.CompressedStats, error)

	// Close releases resources
	Close() error
}
