// Package repository defines the data access interface for the employee
// directory.
//
// This package provides the repository abstraction layer for persisting and
// retrieving employees. The actual implementation is in the sqlite
// subpackage.
//
// # Repository Interface
//
// The Repository interface covers schema setup, deduplicating inserts,
// sorted and filtered retrieval, the filter index, and the lifecycle of the
// compressed cache table.
//
// # Deduplication
//
// The identity key (full_name, birth_date) is enforced by a unique index and
// every insert uses INSERT OR IGNORE, so the first writer wins: a later
// record with the same key but a different gender is silently discarded,
// never merged. FetchUniqueSorted additionally picks the lowest id per key
// to stay deterministic over data written before the index existed.
//
// # SQLite Implementation
//
// The sqlite implementation owns a single connection (see sqlite.Database)
// opened in WAL mode. Every mutation runs inside Database.WithTransaction, so
// readers observe either the state before or after a batch, never part of
// one. BulkInsert commits once per batch and is therefore not all-or-nothing
// across batches.
//
// # Compressed Table
//
// compressed_employees is a derived cache of a filtered subset. Gender and
// name stay uncompressed so the (gender, full_name) index filters without
// decompression; only the payload is compressed (see package codec).
// ReplaceCompressedRows drops and rebuilds its contents in one transaction.
package repository
