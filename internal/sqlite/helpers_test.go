package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

// openTest opens a backend on a fresh database in a temp dir.
func openTest(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	b, err := Open(types.Config{DataDir: t.TempDir()}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

// openSample opens a backend holding the sample schema.
func openSample(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	b := openTest(t, opts...)
	require.NoError(t, b.InitSchema(SampleSchema()))
	return b
}

func mustInsert(t *testing.T, b *Backend, table string, rows ...types.Row) {
	t.Helper()
	for _, r := range rows {
		require.NoError(t, b.InsertRow(table, r), "insert into %s", table)
	}
}

// execSQL runs raw statements and commits them, bypassing key imputation.
func execSQL(t *testing.T, b *Backend, query string, args ...any) {
	t.Helper()
	require.NoError(t, b.run("exec", func() error {
		if _, err := b.q().Exec(query, args...); err != nil {
			return err
		}
		return b.commit()
	}))
}

func rowCount(t *testing.T, b *Backend, table string) int {
	t.Helper()
	rows, err := b.ReadTable(table)
	require.NoError(t, err)
	return len(rows)
}

// seedVenues creates two venues with two event series at the first one and
// one occurrence of the first series.
func seedVenues(t *testing.T, b *Backend) {
	t.Helper()
	mustInsert(t, b, "Venue",
		types.Row{"venue_id": "v1", "venue": "Blue Note", "city": "NYC"},
		types.Row{"venue_id": "v2", "venue": "Village Vanguard", "city": "NYC"},
	)
	mustInsert(t, b, "EventGen",
		types.Row{"event_gen_id": "e1", "name": "Monday Jam", "venue_id": "v1"},
		types.Row{"event_gen_id": "e2", "name": "Late Set", "venue_id": "v1"},
	)
	mustInsert(t, b, "EventOcc",
		types.Row{"event_occ_id": "o1", "event_gen_id": "e1", "venue_id": "v1", "date": "2024-03-04"},
	)
}
