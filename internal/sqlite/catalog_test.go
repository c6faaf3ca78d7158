package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

func TestEntities(t *testing.T) {
	b := openSample(t)

	ents := b.Entities()
	require.Len(t, ents, 10)

	venue := ents["Venue"]
	assert.Equal(t, "Venue", venue.TableName)
	assert.Equal(t, []string{"venue_id", "venue", "city"}, venue.Columns)
	assert.Equal(t, "venue_id", venue.PrimaryKey)
	assert.False(t, venue.AutoKey, "TEXT keys are never assigned by the store")

	occ := ents["EventOcc"]
	assert.Equal(t, []string{"event_occ_id", "event_gen_id", "venue_id", "date"}, occ.Columns)

	// The returned map is a copy.
	delete(ents, "Venue")
	assert.Contains(t, b.Entities(), "Venue")
}

func TestRefresh(t *testing.T) {
	b := openTest(t)
	assert.Empty(t, b.Entities())

	require.NoError(t, b.InitSchema(`CREATE TABLE Tag (tag_id INTEGER PRIMARY KEY, label TEXT);`))
	assert.Contains(t, b.Entities(), "Tag")

	require.NoError(t, b.Refresh())
	assert.Equal(t, "tag_id", b.Entities()["Tag"].PrimaryKey)
}

func TestCatalogRejectsCompositeKeys(t *testing.T) {
	b := openTest(t)

	err := b.InitSchema(`CREATE TABLE Pair (a TEXT, b TEXT, PRIMARY KEY (a, b));`)
	var se *types.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Pair", se.Table)
	assert.Contains(t, se.Msg, "found 2 [a, b]")
}

func TestCatalogRejectsKeylessTables(t *testing.T) {
	b := openTest(t)

	err := b.InitSchema(`CREATE TABLE Loose (a TEXT);`)
	var se *types.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Msg, "found 0")
}

func TestImputerLookup(t *testing.T) {
	b := openSample(t, WithImputer("genre", types.SlugKey("genre")), WithImputer("Venue", types.UUIDKey()))

	assert.NotNil(t, b.Entities()["Genre"].Impute, "table names match case-insensitively")
	assert.NotNil(t, b.Entities()["Venue"].Impute)
	assert.Nil(t, b.Entities()["Song"].Impute)

	mustInsert(t, b, "Genre", types.Row{"genre": "Hard Bop"})
	_, err := b.GetRow("Genre", "hard_bop")
	require.NoError(t, err)

	mustInsert(t, b, "Venue", types.Row{"venue": "Smalls"})
	rows, err := b.ReadTable("Venue")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0]["venue_id"], 36)
}
