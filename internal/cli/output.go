package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal output: %w", err))
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printRow writes one "column: value" line per column, in schema order when
// columns is given.
func printRow(w io.Writer, row types.Row, columns []string) {
	if len(columns) == 0 {
		for c := range row {
			columns = append(columns, c)
		}
		sort.Strings(columns)
	}
	for _, c := range columns {
		v, ok := row[c]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", c, types.FormatValue(v))
	}
}

// columnsOf returns the schema column order of table, or nil when the
// engine does not know it.
func columnsOf(eng types.Engine, table string) []string {
	if ent, ok := eng.Entities()[table]; ok {
		return ent.Columns
	}
	return nil
}
