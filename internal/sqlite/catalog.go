package sqlite

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

// loadCatalog reads every user table, its columns in schema order and its
// primary key, and replaces the catalog. Tables without exactly one
// primary-key column are rejected.
func (b *Backend) loadCatalog() error {
	tables, err := queryRows(b.q(),
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	entities := make(map[string]types.Entity, len(tables))
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		name := types.FormatValue(t["name"])
		ent, err := b.describeTable(name)
		if err != nil {
			return err
		}
		entities[name] = ent
		names = append(names, name)
	}

	b.entities = entities
	b.names = names
	b.logger.Debug("catalog loaded", zap.Int("tables", len(names)))
	return nil
}

func (b *Backend) describeTable(name string) (types.Entity, error) {
	cols, err := queryRows(b.q(),
		`SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid`, name)
	if err != nil {
		return types.Entity{}, fmt.Errorf("describe %s: %w", name, err)
	}

	type pkCol struct {
		name  string
		ctype string
		pos   int64
	}
	var pks []pkCol
	columns := make([]string, 0, len(cols))
	for _, c := range cols {
		col := types.FormatValue(c["name"])
		columns = append(columns, col)
		if pos, _ := c["pk"].(int64); pos > 0 {
			pks = append(pks, pkCol{col, types.FormatValue(c["type"]), pos})
		}
	}
	sort.Slice(pks, func(i, j int) bool { return pks[i].pos < pks[j].pos })

	if len(pks) != 1 {
		names := make([]string, len(pks))
		for i, p := range pks {
			names[i] = p.name
		}
		return types.Entity{}, &types.SchemaError{
			Table: name,
			Msg:   fmt.Sprintf("need exactly one primary key column, found %d [%s]", len(pks), strings.Join(names, ", ")),
		}
	}

	return types.Entity{
		TableName:  name,
		Columns:    columns,
		PrimaryKey: pks[0].name,
		AutoKey:    strings.EqualFold(strings.TrimSpace(pks[0].ctype), "INTEGER"),
		Impute:     b.imputerFor(name),
	}, nil
}

// imputerFor returns the strategy registered for table. Table names match
// case-insensitively, as they do in SQL.
func (b *Backend) imputerFor(table string) types.ImputeFunc {
	if f, ok := b.imputers[table]; ok {
		return f
	}
	for name, f := range b.imputers {
		if strings.EqualFold(name, table) {
			return f
		}
	}
	return nil
}

// entity returns the catalog entry for table.
func (b *Backend) entity(table string) (types.Entity, error) {
	ent, ok := b.entities[table]
	if !ok {
		return types.Entity{}, fmt.Errorf("%w: %q", types.ErrUnknownTable, table)
	}
	return ent, nil
}

// Entities returns a copy of the schema catalog.
func (b *Backend) Entities() map[string]types.Entity {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]types.Entity, len(b.entities))
	for k, v := range b.entities {
		out[k] = v
	}
	return out
}

// Refresh reloads the schema catalog.
func (b *Backend) Refresh() error {
	return b.run("refresh", b.loadCatalog)
}
