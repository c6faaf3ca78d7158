package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

// foreignKeys lists every foreign key in the catalog without allowed values.
// A missing "to" column means the key references the parent's primary key.
func (b *Backend) foreignKeys() ([]types.Relation, error) {
	var rels []types.Relation
	for _, table := range b.names {
		rows, err := b.q().Query(
			`SELECT id, seq, "table", "from", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`, table)
		if err != nil {
			return nil, fmt.Errorf("foreign keys of %s: %w", table, err)
		}

		seen := make(map[int64]bool)
		var tableRels []types.Relation
		for rows.Next() {
			var (
				id, seq     int64
				right, from string
				to          sql.NullString
			)
			if err := rows.Scan(&id, &seq, &right, &from, &to); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan foreign key of %s: %w", table, err)
			}
			if seen[id] {
				rows.Close()
				return nil, &types.SchemaError{Table: table, Msg: fmt.Sprintf("composite foreign key into %s is not supported", right)}
			}
			seen[id] = true

			rel := types.Relation{LeftTable: table, LeftKey: from, RightTable: right, RightKey: to.String}
			if !to.Valid || to.String == "" {
				parent, ok := b.entities[right]
				if !ok {
					rows.Close()
					return nil, &types.SchemaError{Table: table, Msg: fmt.Sprintf("foreign key references unknown table %s", right)}
				}
				rel.RightKey = parent.PrimaryKey
			}
			tableRels = append(tableRels, rel)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
		rels = append(rels, tableRels...)
	}
	return rels, nil
}

// allowedValues snapshots the referenced column of rel.
func (b *Backend) allowedValues(rel types.Relation) ([]any, error) {
	rows, err := queryRows(b.q(), fmt.Sprintf("SELECT %s AS v FROM %s WHERE %s IS NOT NULL",
		quoteIdent(rel.RightKey), quoteIdent(rel.RightTable), quoteIdent(rel.RightKey)))
	if err != nil {
		return nil, fmt.Errorf("allowed values for %s.%s: %w", rel.RightTable, rel.RightKey, err)
	}
	vals := make([]any, len(rows))
	for i, r := range rows {
		vals[i] = r["v"]
	}
	return vals, nil
}

// relations returns every foreign key with a fresh allowed-values snapshot.
func (b *Backend) relations() ([]types.Relation, error) {
	rels, err := b.foreignKeys()
	if err != nil {
		return nil, err
	}
	for i := range rels {
		vals, err := b.allowedValues(rels[i])
		if err != nil {
			return nil, err
		}
		rels[i].AllowedValues = vals
	}
	return rels, nil
}

// Relations returns every foreign key with its allowed values.
func (b *Backend) Relations() ([]types.Relation, error) {
	var out []types.Relation
	err := b.run("relations", func() error {
		var err error
		out, err = b.relations()
		return err
	})
	return out, err
}

// SortedTables returns table names so that a referenced table always comes
// before the tables referencing it.
func (b *Backend) SortedTables() ([]string, error) {
	var out []string
	err := b.run("sorted tables", func() error {
		rels, err := b.foreignKeys()
		if err != nil {
			return err
		}
		out, err = topoSort(b.names, rels)
		return err
	})
	return out, err
}

// topoSort orders tables with Kahn's algorithm. Ready tables are taken in
// name order so the result is deterministic. Self-references do not
// constrain the order. A cycle fails with ErrCyclicDependency.
func topoSort(tables []string, rels []types.Relation) ([]string, error) {
	inDegree := make(map[string]int, len(tables))
	dependents := make(map[string][]string)
	edges := make(map[[2]string]bool)
	for _, t := range tables {
		inDegree[t] = 0
	}
	for _, r := range rels {
		if r.LeftTable == r.RightTable {
			continue
		}
		if _, ok := inDegree[r.RightTable]; !ok {
			continue
		}
		e := [2]string{r.RightTable, r.LeftTable}
		if edges[e] {
			continue
		}
		edges[e] = true
		inDegree[r.LeftTable]++
		dependents[r.RightTable] = append(dependents[r.RightTable], r.LeftTable)
	}

	var ready []string
	for _, t := range tables {
		if inDegree[t] == 0 {
			ready = append(ready, t)
		}
	}
	sort.Strings(ready)

	sorted := make([]string, 0, len(tables))
	for len(ready) > 0 {
		t := ready[0]
		ready = ready[1:]
		sorted = append(sorted, t)
		for _, child := range dependents[t] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = append(ready, child)
			}
		}
		sort.Strings(ready)
	}

	if len(sorted) < len(tables) {
		var stuck []string
		for _, t := range tables {
			if inDegree[t] > 0 {
				stuck = append(stuck, t)
			}
		}
		sort.Strings(stuck)
		return nil, &types.SchemaError{
			Msg: fmt.Sprintf("foreign keys form a cycle among [%s]", strings.Join(stuck, ", ")),
			Err: types.ErrCyclicDependency,
		}
	}
	return sorted, nil
}

// tableRanks maps each table to its position in topological order.
func (b *Backend) tableRanks(rels []types.Relation) (map[string]int, error) {
	order, err := topoSort(b.names, rels)
	if err != nil {
		return nil, err
	}
	ranks := make(map[string]int, len(order))
	for i, t := range order {
		ranks[t] = i
	}
	return ranks, nil
}

// failedInsertConstraints checks the foreign-key columns present in rows
// against a fresh snapshot of the referenced values and reports, per
// relation, the values that have no referenced row.
func (b *Backend) failedInsertConstraints(table string, rows []types.Row) ([]types.ForeignKeyViolation, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	fks, err := b.foreignKeys()
	if err != nil {
		return nil, err
	}

	var out []types.ForeignKeyViolation
	for _, rel := range fks {
		if rel.LeftTable != table {
			continue
		}
		var provided []any
		for _, r := range rows {
			if v, ok := r[rel.LeftKey]; ok && !types.IsMissing(v) {
				provided = append(provided, v)
			}
		}
		if len(provided) == 0 {
			continue
		}

		rel.AllowedValues, err = b.allowedValues(rel)
		if err != nil {
			return nil, err
		}
		var invalid []any
		for _, v := range provided {
			if !rel.Allows(v) && !containsValue(invalid, v) {
				invalid = append(invalid, v)
			}
		}
		if len(invalid) == 0 {
			continue
		}
		out = append(out, types.ForeignKeyViolation{
			ConstrainedTable:   table,
			ConstrainedColumns: []string{rel.LeftKey},
			ReferredTable:      rel.RightTable,
			ReferredColumns:    []string{rel.RightKey},
			InvalidValues:      invalid,
			AllowedValues:      rel.AllowedValues,
		})
	}
	return out, nil
}

// failedDeleteConstraints lists the rows that reference table's row pk,
// ordered by the topological position of the referencing table. The row
// itself is never reported as its own blocker.
func (b *Backend) failedDeleteConstraints(table string, pk any) ([]types.BlockingConstraint, error) {
	ent, err := b.entity(table)
	if err != nil {
		return nil, err
	}
	fks, err := b.foreignKeys()
	if err != nil {
		return nil, err
	}
	ranks, err := b.tableRanks(fks)
	if err != nil {
		return nil, err
	}

	var target types.Row
	var out []types.BlockingConstraint
	for _, rel := range fks {
		if rel.RightTable != table {
			continue
		}

		value := pk
		if rel.RightKey != ent.PrimaryKey {
			if target == nil {
				target, err = b.getRow(table, pk)
				if errors.Is(err, types.ErrNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
			}
			value = target[rel.RightKey]
			if value == nil {
				continue
			}
		}

		left, err := b.entity(rel.LeftTable)
		if err != nil {
			return nil, err
		}
		rows, err := queryRows(b.q(), fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY %s",
			quoteIdent(left.TableName), quoteIdent(rel.LeftKey), quoteIdent(left.PrimaryKey)), value)
		if err != nil {
			return nil, fmt.Errorf("rows referencing %s: %w", table, err)
		}
		for _, r := range rows {
			leftPK := r[left.PrimaryKey]
			if left.TableName == table && types.SameValue(leftPK, pk) {
				continue
			}
			out = append(out, types.BlockingConstraint{
				LeftTable:   left.TableName,
				LeftPK:      leftPK,
				LeftColumn:  rel.LeftKey,
				RightTable:  table,
				RightColumn: rel.RightKey,
				Value:       value,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return ranks[out[i].LeftTable] < ranks[out[j].LeftTable]
	})
	return out, nil
}

func containsValue(vals []any, v any) bool {
	for _, x := range vals {
		if types.SameValue(x, v) {
			return true
		}
	}
	return false
}
