package types

import (
	"fmt"
	"strings"
)

// ViolationKind tags the variant of a Violation.
type ViolationKind string

// Violation kinds.
const (
	KindUnique     ViolationKind = "unique"
	KindNotNull    ViolationKind = "not_null"
	KindForeignKey ViolationKind = "foreign_key"
)

// Unique violation reasons.
const (
	ReasonDuplicateInInput = "duplicate within input"
	ReasonAlreadyExists    = "already exists"
)

// Violation is a structured description of one failed constraint. The
// concrete types are UniqueViolation, NotNullViolation, ForeignKeyViolation
// and, for deletes and renames, BlockingConstraint.
type Violation interface {
	Kind() ViolationKind
	String() string
}

// UniqueViolation reports a value tuple that breaks a unique column set.
type UniqueViolation struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
	Value   []any    `json:"value"`
	Reason  string   `json:"reason"`
	Count   int      `json:"count,omitempty"`
}

func (UniqueViolation) Kind() ViolationKind { return KindUnique }

func (v UniqueViolation) String() string {
	s := fmt.Sprintf("UNIQUE %s(%s) = (%s): %s",
		v.Table, strings.Join(v.Columns, ", "), joinValues(v.Value), v.Reason)
	if v.Count > 1 {
		s += fmt.Sprintf(" (%d times)", v.Count)
	}
	return s
}

// NotNullViolation reports a row missing a required column.
type NotNullViolation struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Row    Row    `json:"row,omitempty"`
}

func (NotNullViolation) Kind() ViolationKind { return KindNotNull }

func (v NotNullViolation) String() string {
	return fmt.Sprintf("NOT NULL %s.%s", v.Table, v.Column)
}

// ForeignKeyViolation reports values that do not exist in the referenced
// column.
type ForeignKeyViolation struct {
	ConstrainedTable   string   `json:"constrained_table"`
	ConstrainedColumns []string `json:"constrained_columns"`
	ReferredTable      string   `json:"referred_table"`
	ReferredColumns    []string `json:"referred_columns"`
	InvalidValues      []any    `json:"invalid_values"`
	AllowedValues      []any    `json:"allowed_values"`
}

func (ForeignKeyViolation) Kind() ViolationKind { return KindForeignKey }

func (v ForeignKeyViolation) String() string {
	return fmt.Sprintf("FOREIGN KEY %s(%s) -> %s(%s): invalid (%s)",
		v.ConstrainedTable, strings.Join(v.ConstrainedColumns, ", "),
		v.ReferredTable, strings.Join(v.ReferredColumns, ", "),
		joinValues(v.InvalidValues))
}

func joinValues(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%q", FormatValue(v))
	}
	return strings.Join(parts, ", ")
}
