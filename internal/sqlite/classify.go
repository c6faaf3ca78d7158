package sqlite

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

// SQLite reports constraint failures as text, e.g.
//
//	UNIQUE constraint failed: Venue.venue_id (1555)
//	NOT NULL constraint failed: Venue.venue (1299)
//	FOREIGN KEY constraint failed (787)
//
// The classifier is the only code that reads these messages.
var (
	uniqueRe  = regexp.MustCompile(`UNIQUE constraint failed: ([^\s,()]+(?:, [^\s,()]+)*)`)
	notNullRe = regexp.MustCompile(`NOT NULL constraint failed: ([^\s,()]+)`)
)

// fkChecker reports the foreign-key values in rows that have no referenced
// row.
type fkChecker func(table string, rows []types.Row) ([]types.ForeignKeyViolation, error)

// classifier turns raw store failures into typed errors with violation
// detail. Enrichment queries that fail are logged and the error is returned
// with whatever detail was gathered.
type classifier struct {
	q       querier
	fkCheck fkChecker
	logger  *zap.Logger
}

func (b *Backend) classifier() classifier {
	return classifier{q: b.q(), fkCheck: b.failedInsertConstraints, logger: b.logger}
}

// classify maps err to UniqueConstraintError, NotNullConstraintError,
// FKConstraintError or DBError, checked in that order. rows are the rows the
// failed statement tried to write.
func (c classifier) classify(err error, table string, rows []types.Row) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	var out error
	switch {
	case strings.Contains(msg, "UNIQUE"):
		out = c.unique(err, msg, table, rows)
	case strings.Contains(msg, "NOT NULL"):
		out = c.notNull(err, msg, table, rows)
	case strings.Contains(msg, "FOREIGN KEY"):
		out = c.foreignKey(table, rows)
	default:
		out = &types.DBError{Table: table, Raw: msg, Err: err}
	}
	c.logger.Debug("classified store failure", zap.String("table", table), zap.Error(out))
	return out
}

// splitQualified splits "Table.col" into its parts.
func splitQualified(s string) (table, col string) {
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return "", s
	}
	return s[:i], s[i+1:]
}

func (c classifier) unique(err error, msg, table string, rows []types.Row) error {
	m := uniqueRe.FindStringSubmatch(msg)
	if m == nil {
		return &types.DBError{Table: table, Raw: msg, Err: err}
	}

	var cols []string
	for _, q := range strings.Split(m[1], ", ") {
		t, col := splitQualified(q)
		if t != "" {
			table = t
		}
		cols = append(cols, col)
	}

	out := &types.UniqueConstraintError{Table: table, Columns: [][]string{cols}}

	// Count each value tuple in the submitted rows, keeping first-seen order.
	type tuple struct {
		vals  []any
		count int
	}
	var order []string
	tuples := make(map[string]*tuple)
	for _, r := range rows {
		vals, ok := tupleOf(r, cols)
		if !ok {
			continue
		}
		k := tupleKey(vals)
		if t, seen := tuples[k]; seen {
			t.count++
			continue
		}
		tuples[k] = &tuple{vals: vals, count: 1}
		order = append(order, k)
	}

	for _, k := range order {
		if t := tuples[k]; t.count > 1 {
			out.Details = append(out.Details, types.UniqueViolation{
				Table: table, Columns: cols, Value: t.vals,
				Reason: types.ReasonDuplicateInInput, Count: t.count,
			})
		}
	}

	existing, qerr := c.existingTuples(table, cols)
	if qerr != nil {
		c.logger.Warn("unique enrichment", zap.String("table", table), zap.Error(qerr))
		return out
	}
	for _, k := range order {
		if existing[k] {
			out.Details = append(out.Details, types.UniqueViolation{
				Table: table, Columns: cols, Value: tuples[k].vals,
				Reason: types.ReasonAlreadyExists,
			})
		}
	}
	return out
}

func (c classifier) existingTuples(table string, cols []string) (map[string]bool, error) {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
	}
	rows, err := queryRows(c.q, fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		if vals, ok := tupleOf(r, cols); ok {
			out[tupleKey(vals)] = true
		}
	}
	return out, nil
}

func (c classifier) notNull(err error, msg, table string, rows []types.Row) error {
	m := notNullRe.FindStringSubmatch(msg)
	if m == nil {
		return &types.DBError{Table: table, Raw: msg, Err: err}
	}
	t, col := splitQualified(m[1])
	if t != "" {
		table = t
	}

	out := &types.NotNullConstraintError{Table: table, Columns: []string{col}}
	for _, r := range rows {
		if v, ok := r[col]; !ok || v == nil {
			out.Details = append(out.Details, types.NotNullViolation{Table: table, Column: col, Row: r})
		}
	}
	return out
}

func (c classifier) foreignKey(table string, rows []types.Row) error {
	out := &types.FKConstraintError{Table: table}
	if c.fkCheck == nil {
		return out
	}
	details, err := c.fkCheck(table, rows)
	if err != nil {
		c.logger.Warn("foreign key enrichment", zap.String("table", table), zap.Error(err))
		return out
	}
	out.Details = details
	return out
}

// tupleOf extracts the values of cols from r. Rows missing a column or
// holding NULL in it cannot collide and are skipped.
func tupleOf(r types.Row, cols []string) ([]any, bool) {
	vals := make([]any, len(cols))
	for i, col := range cols {
		v, ok := r[col]
		if !ok || v == nil {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

func tupleKey(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = types.FormatValue(v)
	}
	return strings.Join(parts, "\x00")
}
