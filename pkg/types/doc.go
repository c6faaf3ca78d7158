// Package types defines the Engine interface, the schema and row model,
// violation reports, and the error hierarchy shared by rowkeeper backends.
//
// Callers work with plain rows (column name to scalar value) over tables
// described by schema metadata. The engine enforces referential integrity in
// application code: it classifies store failures into typed violation
// reports, deletes rows together with everything that depends on them, and
// renames primary keys by staging and re-inserting blocking rows.
package types
