// Package service implements the employee directory's operating modes on top
// of the repository layer.
//
// EmployeeService coordinates the repository, the payload codec and the
// synthetic generator: creating the schema, adding and listing employees,
// bulk-filling generated data, timing the filter query before and after the
// filter index exists, exporting the filtered subset as compressed JSON
// lines, and refreshing the compressed cache table so plain and compressed
// reads can be compared.
//
// # Event System
//
// Services publish events via EventBus so callers can report progress
// without the service knowing how output is rendered.
//
// # Design Principles
//
// - Services own orchestration and timing, never SQL
// - Repository interface for data access
// - Results are plain structs; formatting belongs to the caller
package service
