package sqlite

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

// cascadingDelete deletes table's row pk after recursively deleting every
// row that blocks it. It never commits. A row that is already gone yields an
// empty record. inProgress holds the rows on the current recursion path;
// meeting one of them again means the rows reference each other in a cycle
// that no delete order can break.
func (b *Backend) cascadingDelete(table string, pk any, inProgress map[string]bool) (types.DeletionRecord, error) {
	key := table + "\x00" + types.FormatValue(pk)
	if inProgress[key] {
		return nil, fmt.Errorf("delete %s %q: %w", table, types.FormatValue(pk), types.ErrCyclicDependency)
	}
	inProgress[key] = true
	defer delete(inProgress, key)

	row, err := b.deleteRow(table, pk, false)
	if err == nil {
		return types.DeletionRecord{{TableName: table, Row: row}}, nil
	}

	var gone *types.RetrieveRowError
	if errors.As(err, &gone) {
		return nil, nil
	}
	var fk *types.FKConstraintError
	if !errors.As(err, &fk) {
		return nil, err
	}

	var deleted types.DeletionRecord
	for _, c := range fk.Blocking {
		rec, err := b.cascadingDelete(c.LeftTable, c.LeftPK, inProgress)
		if err != nil {
			return nil, err
		}
		deleted = append(deleted, rec...)
	}

	row, err = b.deleteRow(table, pk, false)
	if err != nil {
		return nil, err
	}
	return append(deleted, types.DeletedRow{TableName: table, Row: row}), nil
}

// CascadingDelete deletes a row together with every row that depends on it
// and returns them, dependents first. Deleting a row that does not exist
// returns an empty record.
func (b *Backend) CascadingDelete(table string, pk any) (types.DeletionRecord, error) {
	var out types.DeletionRecord
	err := b.run("cascading delete", func() error {
		if _, err := b.entity(table); err != nil {
			return err
		}
		opID := newOpID()
		rec, err := b.cascadingDelete(table, pk, make(map[string]bool))
		if err != nil {
			return err
		}
		if err := b.commit(); err != nil {
			return err
		}
		b.logger.Info("cascading delete",
			zap.String("op_id", opID),
			zap.String("table", table),
			zap.String("key", types.FormatValue(pk)),
			zap.Int("rows", len(rec)))
		out = rec
		return nil
	})
	return out, err
}
