package sqlite

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// readJSONL reads a JSONL file and returns each non-empty line as a
// json.RawMessage. A malformed line fails the read with its line number.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		if !json.Valid(b) {
			return nil, fmt.Errorf("%s:%d: malformed JSON", path, line)
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// tableFile is the JSONL file holding table's rows.
func tableFile(dir, table string) string {
	return filepath.Join(dir, table+".jsonl")
}

// Dump writes every table to <dir>/<table>.jsonl, one row per line, in
// dependency order.
func (b *Backend) Dump(dir string) error {
	return b.run("dump", func() error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		fks, err := b.foreignKeys()
		if err != nil {
			return err
		}
		order, err := topoSort(b.names, fks)
		if err != nil {
			return err
		}

		for _, table := range order {
			rows, err := b.readTable(table)
			if err != nil {
				return err
			}
			records := make([]json.RawMessage, 0, len(rows))
			for _, r := range rows {
				rec, err := json.Marshal(r)
				if err != nil {
					return fmt.Errorf("marshal %s row: %w", table, err)
				}
				records = append(records, rec)
			}
			if err := writeJSONL(tableFile(dir, table), records); err != nil {
				return fmt.Errorf("dump %s: %w", table, err)
			}
			b.logger.Debug("dumped table", zap.String("table", table), zap.Int("rows", len(rows)))
		}
		return nil
	})
}
