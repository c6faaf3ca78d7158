package types

import "fmt"

// Relation is one single-column foreign key: LeftTable.LeftKey references
// RightTable.RightKey. AllowedValues is a snapshot of the referenced column
// taken when the relation was read; it is not kept across operations.
type Relation struct {
	LeftTable     string `json:"left_table"`
	LeftKey       string `json:"left_key"`
	RightTable    string `json:"right_table"`
	RightKey      string `json:"right_key"`
	AllowedValues []any  `json:"allowed_values,omitempty"`
}

// Allows reports whether v is present in the allowed-values snapshot.
func (r Relation) Allows(v any) bool {
	for _, a := range r.AllowedValues {
		if SameValue(a, v) {
			return true
		}
	}
	return false
}

// BlockingConstraint names one row that prevents deleting (or re-keying)
// RightTable's row holding Value. It is the foreign-key violation reported
// by deletes and renames.
type BlockingConstraint struct {
	LeftTable   string `json:"left_table"`
	LeftPK      any    `json:"left_table_primary_key_value"`
	LeftColumn  string `json:"left_fk_column"`
	RightTable  string `json:"right_table"`
	RightColumn string `json:"right_fk_column"`
	Value       any    `json:"value"`
}

func (BlockingConstraint) Kind() ViolationKind { return KindForeignKey }

func (c BlockingConstraint) String() string {
	return fmt.Sprintf("FOREIGN KEY %s(%s) row %q references %s(%s) = %q",
		c.LeftTable, c.LeftColumn, FormatValue(c.LeftPK),
		c.RightTable, c.RightColumn, FormatValue(c.Value))
}
