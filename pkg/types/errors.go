package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	ErrNotFound           = errors.New("row not found")
	ErrUnknownTable       = errors.New("unknown table")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrIntegrityViolation = errors.New("primary key matched more than one row")
	ErrPrimaryKeyUpdate   = errors.New("primary key cannot be changed by update; use rename")
	ErrCyclicDependency   = errors.New("cyclic foreign key dependency")
	ErrEngineClosed       = errors.New("engine is closed")
)

// ConstraintError is implemented by the constraint failures that carry
// violation reports.
type ConstraintError interface {
	error
	Violations() []Violation
}

// RetrieveRowError reports that the row targeted by an update, delete or
// rename does not exist. Cascades treat it as "nothing to do".
type RetrieveRowError struct {
	Op    string
	Table string
	Key   any
}

func (e *RetrieveRowError) Error() string {
	return fmt.Sprintf("%s: no row %q in %s", e.Op, FormatValue(e.Key), e.Table)
}

func (e *RetrieveRowError) Unwrap() error { return ErrNotFound }

// UniqueConstraintError reports a uniqueness failure.
type UniqueConstraintError struct {
	Table   string
	Columns [][]string
	Details []UniqueViolation
}

func (e *UniqueConstraintError) Error() string {
	lines := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		lines = append(lines, d.String())
	}
	if len(lines) == 0 {
		for _, cols := range e.Columns {
			lines = append(lines, fmt.Sprintf("UNIQUE %s(%s)", e.Table, strings.Join(cols, ", ")))
		}
	}
	return failedConstraints(e.Table, "unique", lines)
}

func (e *UniqueConstraintError) Violations() []Violation {
	out := make([]Violation, len(e.Details))
	for i, d := range e.Details {
		out[i] = d
	}
	return out
}

// NotNullConstraintError reports a required column left empty.
type NotNullConstraintError struct {
	Table   string
	Columns []string
	Details []NotNullViolation
}

func (e *NotNullConstraintError) Error() string {
	lines := make([]string, 0, len(e.Columns))
	for _, c := range e.Columns {
		lines = append(lines, fmt.Sprintf("NOT NULL %s.%s", e.Table, c))
	}
	return failedConstraints(e.Table, "not null", lines)
}

func (e *NotNullConstraintError) Violations() []Violation {
	out := make([]Violation, len(e.Details))
	for i, d := range e.Details {
		out[i] = d
	}
	return out
}

// FKConstraintError reports a foreign-key failure. Inserts and updates fill
// Details with the values that have no referenced row; deletes and renames
// fill Blocking with the rows still referencing the target.
type FKConstraintError struct {
	Table    string
	Details  []ForeignKeyViolation
	Blocking []BlockingConstraint
}

func (e *FKConstraintError) Error() string {
	lines := make([]string, 0, len(e.Details)+len(e.Blocking))
	for _, d := range e.Details {
		lines = append(lines, d.String())
	}
	for _, b := range e.Blocking {
		lines = append(lines, b.String())
	}
	return failedConstraints(e.Table, "foreign key", lines)
}

func (e *FKConstraintError) Violations() []Violation {
	out := make([]Violation, 0, len(e.Details)+len(e.Blocking))
	for _, d := range e.Details {
		out = append(out, d)
	}
	for _, b := range e.Blocking {
		out = append(out, b)
	}
	return out
}

// SchemaError reports a catalog the engine cannot work with, such as a
// composite primary key or a cyclic foreign-key graph.
type SchemaError struct {
	Table string
	Msg   string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return "schema: " + e.Msg
	}
	return fmt.Sprintf("schema: table %s: %s", e.Table, e.Msg)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// DBError is the fallback for store failures that are not constraint
// violations. Raw keeps the store's message.
type DBError struct {
	Table string
	Raw   string
	Err   error
}

func (e *DBError) Error() string {
	if e.Table == "" {
		return "db error: " + e.Raw
	}
	return fmt.Sprintf("db error on %s: %s", e.Table, e.Raw)
}

func (e *DBError) Unwrap() error { return e.Err }

func failedConstraints(table, kind string, lines []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s constraint failed", table, kind)
	for _, l := range lines {
		b.WriteString("\n  ")
		b.WriteString(l)
	}
	return b.String()
}
