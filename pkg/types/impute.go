package types

import (
	"strings"

	"github.com/google/uuid"
)

// ImputeFunc fills the primary key of a row that arrived without one. It is
// only called when row has no value for e.PrimaryKey and may leave it unset.
type ImputeFunc func(e Entity, row Row)

// UUIDKey assigns a UUID v7 primary key.
func UUIDKey() ImputeFunc {
	return func(e Entity, row Row) {
		id, err := uuid.NewV7()
		if err != nil {
			id = uuid.New()
		}
		row[e.PrimaryKey] = id.String()
	}
}

// SlugKey derives the primary key from a name column: lower-cased, trimmed,
// with spaces replaced by underscores. Rows without that column keep no key.
func SlugKey(column string) ImputeFunc {
	return func(e Entity, row Row) {
		v, ok := row[column]
		if !ok || IsMissing(v) {
			return
		}
		row[e.PrimaryKey] = Slug(FormatValue(v))
	}
}

// Slug lower-cases name, trims it and replaces spaces with underscores.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
