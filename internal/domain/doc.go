// Package domain defines the core domain types for the employee directory.
//
// This package contains the validated in-memory representation of an employee
// record together with its canonical row encoding and derived fields.
//
// # Core Types
//
// Employee is one person in the directory, identified by the pair
// (FullName, BirthDate). Two employees with an equal identity key are the
// same entity regardless of Gender.
//
// Gender is a closed enumeration of the two values accepted by storage.
//
// Row is the canonical (full_name, birth_date, gender) triple used for
// storage and indexed lookup.
//
// # Validation
//
// Construction through NewEmployee or ParseEmployee is the only way records
// enter the system. Malformed dates, unknown genders and blank names are
// rejected with a *ValidationError, which matches ErrValidation under
// errors.Is. Validation errors never reach storage.
//
// # Design Principles
//
// - Immutable value objects
// - No database or external dependencies
// - Pure domain logic without infrastructure concerns
package domain
