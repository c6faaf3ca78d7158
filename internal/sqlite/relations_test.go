package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

func rel(left, leftKey, right, rightKey string) types.Relation {
	return types.Relation{LeftTable: left, LeftKey: leftKey, RightTable: right, RightKey: rightKey}
}

func TestTopoSort(t *testing.T) {
	tests := []struct {
		name   string
		tables []string
		rels   []types.Relation
		want   []string
	}{
		{
			name:   "no relations sorts by name",
			tables: []string{"C", "A", "B"},
			want:   []string{"A", "B", "C"},
		},
		{
			name:   "chain",
			tables: []string{"EventOcc", "EventGen", "Venue"},
			rels: []types.Relation{
				rel("EventOcc", "event_gen_id", "EventGen", "event_gen_id"),
				rel("EventGen", "venue_id", "Venue", "venue_id"),
				rel("EventOcc", "venue_id", "Venue", "venue_id"),
			},
			want: []string{"Venue", "EventGen", "EventOcc"},
		},
		{
			name:   "self reference does not constrain",
			tables: []string{"Person", "Instrument", "PersonInstrument"},
			rels: []types.Relation{
				rel("Person", "mentor_id", "Person", "person_id"),
				rel("PersonInstrument", "person_id", "Person", "person_id"),
				rel("PersonInstrument", "instrument_id", "Instrument", "instrument_id"),
			},
			want: []string{"Instrument", "Person", "PersonInstrument"},
		},
		{
			name:   "ties broken by name as tables become ready",
			tables: []string{"Z", "B", "A"},
			rels:   []types.Relation{rel("A", "z_id", "Z", "z_id")},
			want:   []string{"B", "Z", "A"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := topoSort(tt.tables, tt.rels)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTopoSortCycle(t *testing.T) {
	_, err := topoSort([]string{"A", "B", "C"}, []types.Relation{
		rel("A", "b_id", "B", "b_id"),
		rel("B", "a_id", "A", "a_id"),
	})
	assert.ErrorIs(t, err, types.ErrCyclicDependency)

	var se *types.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Msg, "[A, B]")
}

func TestSortedTables(t *testing.T) {
	b := openSample(t)

	order, err := b.SortedTables()
	require.NoError(t, err)
	require.Len(t, order, 10)

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	rels, err := b.Relations()
	require.NoError(t, err)
	for _, r := range rels {
		if r.LeftTable == r.RightTable {
			continue
		}
		assert.Less(t, pos[r.RightTable], pos[r.LeftTable], "%s before %s", r.RightTable, r.LeftTable)
	}
}

func TestSortedTablesCycleInSchema(t *testing.T) {
	b := openTest(t)
	require.NoError(t, b.InitSchema(`
CREATE TABLE A (a_id TEXT PRIMARY KEY, b_id TEXT REFERENCES B(b_id));
CREATE TABLE B (b_id TEXT PRIMARY KEY, a_id TEXT REFERENCES A(a_id));`))

	_, err := b.SortedTables()
	assert.ErrorIs(t, err, types.ErrCyclicDependency)
}

func TestRelations(t *testing.T) {
	b := openSample(t)
	seedVenues(t, b)

	rels, err := b.Relations()
	require.NoError(t, err)

	var found bool
	for _, r := range rels {
		if r.LeftTable == "EventGen" && r.LeftKey == "venue_id" {
			found = true
			assert.Equal(t, "Venue", r.RightTable)
			assert.Equal(t, "venue_id", r.RightKey)
			assert.ElementsMatch(t, []any{"v1", "v2"}, r.AllowedValues)
		}
	}
	assert.True(t, found)
}

func TestRelationsImplicitParentKey(t *testing.T) {
	b := openTest(t)
	require.NoError(t, b.InitSchema(`
CREATE TABLE Parent (pid INTEGER PRIMARY KEY);
CREATE TABLE Child (cid INTEGER PRIMARY KEY, pid INTEGER REFERENCES Parent);`))

	rels, err := b.Relations()
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "pid", rels[0].RightKey)
}

func TestRelationsRejectCompositeForeignKeys(t *testing.T) {
	b := openTest(t)
	require.NoError(t, b.InitSchema(`
CREATE TABLE P (id TEXT PRIMARY KEY, a TEXT, b TEXT, UNIQUE (a, b));
CREATE TABLE C (id TEXT PRIMARY KEY, a TEXT, b TEXT, FOREIGN KEY (a, b) REFERENCES P(a, b));`))

	_, err := b.Relations()
	var se *types.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "C", se.Table)
}

func TestFailedDeleteConstraints(t *testing.T) {
	b := openSample(t)
	seedVenues(t, b)

	var blocking []types.BlockingConstraint
	require.NoError(t, b.run("test", func() error {
		var err error
		blocking, err = b.failedDeleteConstraints("Venue", "v1")
		return err
	}))

	require.Len(t, blocking, 3)
	assert.Equal(t, types.BlockingConstraint{
		LeftTable: "EventGen", LeftPK: "e1", LeftColumn: "venue_id",
		RightTable: "Venue", RightColumn: "venue_id", Value: "v1",
	}, blocking[0])
	assert.Equal(t, "e2", blocking[1].LeftPK)
	assert.Equal(t, "EventOcc", blocking[2].LeftTable)
	assert.Equal(t, "o1", blocking[2].LeftPK)
}

func TestFailedDeleteConstraintsSkipsSelf(t *testing.T) {
	b := openSample(t)
	mustInsert(t, b, "Person",
		types.Row{"person_id": "p1", "public_name": "Self"},
		types.Row{"person_id": "p2", "public_name": "Student", "mentor_id": "p1"},
	)
	require.NoError(t, b.UpdateRow("Person", "p1", types.Row{"mentor_id": "p1"}))

	var blocking []types.BlockingConstraint
	require.NoError(t, b.run("test", func() error {
		var err error
		blocking, err = b.failedDeleteConstraints("Person", "p1")
		return err
	}))
	require.Len(t, blocking, 1)
	assert.Equal(t, "p2", blocking[0].LeftPK)
}
