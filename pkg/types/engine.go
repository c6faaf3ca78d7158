package types

import "io"

// Engine is the referential-integrity layer over a relational store.
//
// Every operation starts from a freshly reset connection and is its own
// atomic unit: it either commits (unless the engine is read-only) or leaves
// the store unchanged.
type Engine interface {
	// Entities returns the schema catalog keyed by table name.
	Entities() map[string]Entity

	// Refresh rebuilds the schema catalog from the store.
	Refresh() error

	// GetRow returns the row whose primary key equals pk.
	// Returns ErrNotFound if no such row exists.
	GetRow(table string, pk any) (Row, error)

	// ReadTable returns every row of table ordered by primary key.
	ReadTable(table string) ([]Row, error)

	// InsertRow imputes and inserts a single row.
	InsertRow(table string, row Row) error

	// InsertRows inserts a batch atomically; on failure no row is kept and
	// the error describes the whole batch.
	InsertRows(table string, rows []Row) error

	// UpdateRow updates the non-key columns of an existing row. Changing the
	// primary key is rejected with ErrPrimaryKeyUpdate.
	UpdateRow(table string, pk any, row Row) error

	// DeleteRow deletes a single row and returns it. It never cascades: a
	// referenced row fails with FKConstraintError listing the blockers.
	DeleteRow(table string, pk any) (Row, error)

	// CascadingDelete deletes a row and everything that transitively
	// references it, children first.
	CascadingDelete(table string, pk any) (DeletionRecord, error)

	// RenamePrimaryKey changes a row's primary key, carrying referencing
	// rows over to the new key.
	RenamePrimaryKey(table string, oldPK, newPK any) error

	// Relations returns every foreign key with its allowed values.
	Relations() ([]Relation, error)

	// SortedTables returns table names with referenced tables first.
	SortedTables() ([]string, error)

	// InitSchema executes a SQL script and reloads the catalog.
	InitSchema(script string) error

	// Dump writes one JSONL file per table into dir.
	Dump(dir string) error

	// Load inserts the JSONL files in dir, referenced tables first.
	Load(dir string) error

	// WriteERD writes the relation graph in Graphviz DOT format.
	WriteERD(w io.Writer) error

	// Close releases the connection, discarding uncommitted writes.
	Close() error
}
