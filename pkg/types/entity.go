package types

// Entity describes one table: its name, columns in schema order, and its
// single primary-key column. Entities are built once per catalog load and
// never modified.
type Entity struct {
	TableName  string   `json:"table_name"`
	Columns    []string `json:"columns"`
	PrimaryKey string   `json:"primary_key"`

	// AutoKey is set when the primary key is an alias of SQLite's rowid, so
	// the store assigns a key to rows inserted without one.
	AutoKey bool `json:"auto_key,omitempty"`

	// Impute runs when a row being inserted has no primary key value.
	Impute ImputeFunc `json:"-"`
}

// HasColumn reports whether col belongs to the table.
func (e Entity) HasColumn(col string) bool {
	for _, c := range e.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// RestrictRow returns the values of row that belong to the entity's columns,
// dropping missing values. Keys are left exactly as given.
func (e Entity) RestrictRow(row Row) Row {
	out := make(Row, len(e.Columns))
	for _, col := range e.Columns {
		v, ok := row[col]
		if !ok || IsMissing(v) {
			continue
		}
		out[col] = v
	}
	return out
}

// ImputeRow restricts row to the entity's columns, fills a missing primary
// key with the entity's strategy, and normalizes the primary key to its
// canonical string form. It is meant for caller input; rows read back from
// the store go through RestrictRow.
func (e Entity) ImputeRow(row Row) Row {
	out := e.RestrictRow(row)
	if _, ok := out[e.PrimaryKey]; !ok && e.Impute != nil {
		e.Impute(e, out)
	}
	if v, ok := out[e.PrimaryKey]; ok && !IsMissing(v) {
		out[e.PrimaryKey] = FormatKey(v)
	}
	return out
}
