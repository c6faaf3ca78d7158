package sqlite

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

// renameTask stages one blocking row: it is cascade-deleted before the
// rename and re-inserted afterwards with replace applied.
type renameTask struct {
	table   string
	pk      any
	replace types.Row
}

// execRename issues the primary-key UPDATE and classifies its failure.
func (b *Backend) execRename(ent types.Entity, oldPK, newPK any) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		quoteIdent(ent.TableName), quoteIdent(ent.PrimaryKey), quoteIdent(ent.PrimaryKey))
	if _, err := b.q().Exec(query, newPK, oldPK); err != nil {
		return b.classifier().classify(err, ent.TableName, []types.Row{{ent.PrimaryKey: newPK}})
	}
	return nil
}

// renamePrimaryKey re-keys table's row oldPK to newPK without committing.
//
// When rows reference oldPK the direct UPDATE is blocked. Those rows are
// then cascade-deleted (popping tasks last-in first-out), the references to
// oldPK are patched to newPK, the UPDATE is retried and the staged rows are
// re-inserted. Re-insertion follows the dependency graph: referenced tables
// first, and within one table the reverse of deletion order.
func (b *Backend) renamePrimaryKey(table string, oldPK, newPK any) (int, error) {
	ent, err := b.entity(table)
	if err != nil {
		return 0, err
	}
	if _, err := b.getRow(table, oldPK); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return 0, &types.RetrieveRowError{Op: "rename", Table: table, Key: oldPK}
		}
		return 0, err
	}
	if types.SameValue(oldPK, newPK) {
		return 0, nil
	}

	err = b.execRename(ent, oldPK, newPK)
	if err == nil {
		return 0, nil
	}
	var fk *types.FKConstraintError
	if !errors.As(err, &fk) {
		return 0, err
	}

	blocking, err := b.failedDeleteConstraints(table, oldPK)
	if err != nil {
		return 0, err
	}
	fks, err := b.foreignKeys()
	if err != nil {
		return 0, err
	}

	tasks := make([]renameTask, 0, len(blocking))
	for _, c := range blocking {
		t := renameTask{table: c.LeftTable, pk: c.LeftPK}
		if c.RightTable == table && c.RightColumn == ent.PrimaryKey {
			t.replace = types.Row{c.LeftColumn: newPK}
		}
		tasks = append(tasks, t)
	}

	var staged types.DeletionRecord
	// The renamed row stays in place; reaching it through a blocker means
	// the blocker depends on it in a cycle.
	inProgress := map[string]bool{table + "\x00" + types.FormatValue(oldPK): true}
	for len(tasks) > 0 {
		t := tasks[len(tasks)-1]
		tasks = tasks[:len(tasks)-1]

		rec, err := b.cascadingDelete(t.table, t.pk, inProgress)
		if err != nil {
			return 0, err
		}
		if len(rec) > 0 {
			last := rec[len(rec)-1].Row
			for col, v := range t.replace {
				last[col] = v
			}
		}
		staged = append(staged, rec...)
	}
	patchReferences(staged, fks, ent, oldPK, newPK)

	if err := b.execRename(ent, oldPK, newPK); err != nil {
		return 0, err
	}

	ranks, err := b.tableRanks(fks)
	if err != nil {
		return 0, err
	}
	for _, d := range reinsertOrder(staged, ranks) {
		if err := b.restoreRow(d.TableName, d.Row); err != nil {
			return 0, fmt.Errorf("re-insert %s: %w", d.TableName, err)
		}
	}
	return len(staged), nil
}

// patchReferences points every staged reference to the renamed row at its
// new key. This covers rows reached through a deeper cascade path, whose
// task carried no replacement.
func patchReferences(staged types.DeletionRecord, fks []types.Relation, ent types.Entity, oldPK, newPK any) {
	for _, rel := range fks {
		if rel.RightTable != ent.TableName || rel.RightKey != ent.PrimaryKey {
			continue
		}
		for _, d := range staged {
			if d.TableName != rel.LeftTable {
				continue
			}
			if v, ok := d.Row[rel.LeftKey]; ok && types.SameValue(v, oldPK) {
				d.Row[rel.LeftKey] = newPK
			}
		}
	}
}

// reinsertOrder pops staged rows off the stack and then stably orders them
// so that referenced tables come first.
func reinsertOrder(staged types.DeletionRecord, ranks map[string]int) types.DeletionRecord {
	out := make(types.DeletionRecord, 0, len(staged))
	for i := len(staged) - 1; i >= 0; i-- {
		out = append(out, staged[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ranks[out[i].TableName] < ranks[out[j].TableName]
	})
	return out
}

// RenamePrimaryKey changes the primary key of table's row oldPK to newPK.
// Rows referencing the old key end up referencing the new one. A newPK that
// already exists fails with UniqueConstraintError before anything is
// deleted. The whole rename commits once or not at all.
func (b *Backend) RenamePrimaryKey(table string, oldPK, newPK any) error {
	return b.run("rename", func() error {
		opID := newOpID()
		newPK = types.FormatKey(newPK)
		moved, err := b.renamePrimaryKey(table, oldPK, newPK)
		if err != nil {
			return err
		}
		if err := b.commit(); err != nil {
			return err
		}
		b.logger.Info("renamed primary key",
			zap.String("op_id", opID),
			zap.String("table", table),
			zap.String("from", types.FormatValue(oldPK)),
			zap.String("to", types.FormatValue(newPK)),
			zap.Int("rows_reinserted", moved))
		return nil
	})
}
