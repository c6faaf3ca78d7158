package sqlite

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

// Load reads <dir>/<table>.jsonl for every table, referenced tables first,
// and inserts the rows with foreign keys enforced. Loading is one unit: the
// first failing row aborts it and nothing is kept. Missing files are
// skipped; fields that are not columns of the table are ignored. Keys are
// inserted exactly as written, without imputation.
func (b *Backend) Load(dir string) error {
	return b.run("load", func() error {
		fks, err := b.foreignKeys()
		if err != nil {
			return err
		}
		order, err := topoSort(b.names, fks)
		if err != nil {
			return err
		}

		total := 0
		for _, table := range order {
			records, err := readJSONL(tableFile(dir, table))
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return err
			}

			for i, rec := range records {
				row, err := types.DecodeRow(rec)
				if err != nil {
					return fmt.Errorf("%s record %d: %w", table, i+1, err)
				}
				if err := b.restoreRow(table, row); err != nil {
					return fmt.Errorf("loading %s record %d: %w", table, i+1, err)
				}
			}
			total += len(records)
			b.logger.Debug("loaded table", zap.String("table", table), zap.Int("rows", len(records)))
		}

		if err := b.commit(); err != nil {
			return err
		}
		b.logger.Info("load complete", zap.String("dir", dir), zap.Int("rows", total))
		return nil
	})
}
