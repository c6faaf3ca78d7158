package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

// Single-row operations. The lower-case variants run on the current
// transaction and take a commit flag so that cascades and renames can stage
// several writes and commit once.

func (b *Backend) getRow(table string, pk any) (types.Row, error) {
	ent, err := b.entity(table)
	if err != nil {
		return nil, err
	}
	rows, err := queryRows(b.q(), fmt.Sprintf("SELECT * FROM %s WHERE %s = ?",
		quoteIdent(table), quoteIdent(ent.PrimaryKey)), pk)
	if err != nil {
		return nil, b.classifier().classify(err, table, nil)
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("%s %q: %w", table, types.FormatValue(pk), types.ErrNotFound)
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("%s %q: %w", table, types.FormatValue(pk), types.ErrIntegrityViolation)
	}
}

func (b *Backend) readTable(table string) ([]types.Row, error) {
	ent, err := b.entity(table)
	if err != nil {
		return nil, err
	}
	rows, err := queryRows(b.q(), fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		quoteIdent(table), quoteIdent(ent.PrimaryKey)))
	if err != nil {
		return nil, b.classifier().classify(err, table, nil)
	}
	return rows, nil
}

// insertStatement builds the INSERT for an imputed row, columns in schema
// order.
func insertStatement(ent types.Entity, row types.Row) (string, []any) {
	var cols, marks []string
	var args []any
	for _, col := range ent.Columns {
		v, ok := row[col]
		if !ok {
			continue
		}
		cols = append(cols, quoteIdent(col))
		marks = append(marks, "?")
		args = append(args, v)
	}
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quoteIdent(ent.TableName)), nil
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(ent.TableName), strings.Join(cols, ", "), strings.Join(marks, ", ")), args
}

// prepareInsert readies row for insertion into table. Caller input is
// imputed; a restored row was read back from the store and keeps its key
// exactly as stored. A row left without a primary key is rejected unless the
// store assigns one.
func (b *Backend) prepareInsert(table string, row types.Row, restore bool) (types.Entity, types.Row, error) {
	ent, err := b.entity(table)
	if err != nil {
		return ent, nil, err
	}
	if restore {
		row = ent.RestrictRow(row)
	} else {
		row = ent.ImputeRow(row)
	}
	if _, ok := row[ent.PrimaryKey]; !ok && !ent.AutoKey {
		return ent, row, &types.NotNullConstraintError{
			Table:   table,
			Columns: []string{ent.PrimaryKey},
			Details: []types.NotNullViolation{{Table: table, Column: ent.PrimaryKey, Row: row}},
		}
	}
	return ent, row, nil
}

func (b *Backend) insert(table string, row types.Row, restore, commit bool) error {
	ent, prepared, err := b.prepareInsert(table, row, restore)
	if err != nil {
		return err
	}
	query, args := insertStatement(ent, prepared)
	if _, err := b.q().Exec(query, args...); err != nil {
		return b.classifier().classify(err, table, []types.Row{prepared})
	}
	if commit {
		return b.commit()
	}
	return nil
}

func (b *Backend) insertRow(table string, row types.Row, commit bool) error {
	return b.insert(table, row, false, commit)
}

// restoreRow re-inserts a row that was read from the store, such as a row
// staged by a rename or a dumped record, without committing.
func (b *Backend) restoreRow(table string, row types.Row) error {
	return b.insert(table, row, true, false)
}

func (b *Backend) updateRow(table string, pk any, row types.Row, commit bool) error {
	ent, err := b.entity(table)
	if err != nil {
		return err
	}
	if _, ok := row[ent.PrimaryKey]; ok {
		return fmt.Errorf("update %s: %w", table, types.ErrPrimaryKeyUpdate)
	}
	for col := range row {
		if !ent.HasColumn(col) {
			return fmt.Errorf("update %s: %w: %q", table, types.ErrUnknownColumn, col)
		}
	}

	existing, err := b.getRow(table, pk)
	if errors.Is(err, types.ErrNotFound) {
		return &types.RetrieveRowError{Op: "update", Table: table, Key: pk}
	}
	if err != nil {
		return err
	}
	if len(row) == 0 {
		return nil
	}

	var sets []string
	var args []any
	merged := existing.Clone()
	for _, col := range ent.Columns {
		v, ok := row[col]
		if !ok {
			continue
		}
		if types.IsMissing(v) {
			v = nil
		}
		sets = append(sets, quoteIdent(col)+" = ?")
		args = append(args, v)
		merged[col] = v
	}
	args = append(args, pk)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quoteIdent(table), strings.Join(sets, ", "), quoteIdent(ent.PrimaryKey))
	if _, err := b.q().Exec(query, args...); err != nil {
		return b.classifier().classify(err, table, []types.Row{merged})
	}
	if commit {
		return b.commit()
	}
	return nil
}

// deleteRow deletes a single row and returns it. A row still referenced
// fails with FKConstraintError whose Blocking lists the referencing rows; it
// is never deleted implicitly.
func (b *Backend) deleteRow(table string, pk any, commit bool) (types.Row, error) {
	existing, err := b.getRow(table, pk)
	if errors.Is(err, types.ErrNotFound) {
		return nil, &types.RetrieveRowError{Op: "delete", Table: table, Key: pk}
	}
	if err != nil {
		return nil, err
	}
	ent, err := b.entity(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(table), quoteIdent(ent.PrimaryKey))
	if _, err := b.q().Exec(query, pk); err != nil {
		cerr := b.classifier().classify(err, table, nil)
		var fk *types.FKConstraintError
		if !errors.As(cerr, &fk) {
			return nil, cerr
		}
		blocking, berr := b.failedDeleteConstraints(table, pk)
		if berr != nil {
			return nil, berr
		}
		fk.Details = nil
		fk.Blocking = blocking
		return nil, fk
	}

	if commit {
		if err := b.commit(); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

// GetRow returns the row of table whose primary key equals pk.
func (b *Backend) GetRow(table string, pk any) (types.Row, error) {
	var out types.Row
	err := b.run("get", func() error {
		var err error
		out, err = b.getRow(table, pk)
		return err
	})
	return out, err
}

// ReadTable returns all rows of table ordered by primary key.
func (b *Backend) ReadTable(table string) ([]types.Row, error) {
	var out []types.Row
	err := b.run("read table", func() error {
		var err error
		out, err = b.readTable(table)
		return err
	})
	return out, err
}

// InsertRow imputes row and inserts it.
func (b *Backend) InsertRow(table string, row types.Row) error {
	return b.run("insert", func() error {
		return b.insertRow(table, row, true)
	})
}

// InsertRows inserts rows as one unit. When any row fails the whole batch is
// rolled back and the failure is classified against every row of the batch,
// so duplicates inside the batch are reported alongside existing keys.
func (b *Backend) InsertRows(table string, rows []types.Row) error {
	return b.run("insert batch", func() error {
		imputed := make([]types.Row, 0, len(rows))
		var failed error
		for _, r := range rows {
			ent, ir, err := b.prepareInsert(table, r, false)
			if err != nil {
				return err
			}
			imputed = append(imputed, ir)
			query, args := insertStatement(ent, ir)
			if _, err := b.q().Exec(query, args...); err != nil && failed == nil {
				failed = err
			}
		}
		if failed == nil {
			return b.commit()
		}
		if err := b.rollback(); err != nil {
			return err
		}
		return b.classifier().classify(failed, table, imputed)
	})
}

// UpdateRow sets the given non-key columns of an existing row.
func (b *Backend) UpdateRow(table string, pk any, row types.Row) error {
	return b.run("update", func() error {
		return b.updateRow(table, pk, row, true)
	})
}

// DeleteRow deletes one row without cascading and returns it.
func (b *Backend) DeleteRow(table string, pk any) (types.Row, error) {
	var out types.Row
	err := b.run("delete", func() error {
		var err error
		out, err = b.deleteRow(table, pk, true)
		return err
	})
	return out, err
}
