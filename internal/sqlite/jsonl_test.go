package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

func TestWriteReadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Venue.jsonl")
	records := []json.RawMessage{
		json.RawMessage(`{"venue_id":"v1"}`),
		json.RawMessage(`{"venue_id":"v2"}`),
	}
	require.NoError(t, writeJSONL(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"venue_id\":\"v1\"}\n{\"venue_id\":\"v2\"}\n", string(data))

	got, err := readJSONL(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is renamed away")
}

func TestReadJSONL(t *testing.T) {
	dir := t.TempDir()

	t.Run("skips blank lines", func(t *testing.T) {
		path := filepath.Join(dir, "blank.jsonl")
		require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n\n{\"a\":2}\n"), 0o644))
		got, err := readJSONL(path)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("malformed line", func(t *testing.T) {
		path := filepath.Join(dir, "bad.jsonl")
		require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n{\"a\":\n"), 0o644))
		_, err := readJSONL(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.jsonl:2")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readJSONL(filepath.Join(dir, "none.jsonl"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestDumpLoad(t *testing.T) {
	src := openSample(t)
	seedVenues(t, src)
	mustInsert(t, src, "Person",
		types.Row{"person_id": "p1", "public_name": "Monk"},
		types.Row{"person_id": "p2", "public_name": "Rollins", "mentor_id": "p1"},
	)

	dir := filepath.Join(t.TempDir(), "dump")
	require.NoError(t, src.Dump(dir))
	for name := range src.Entities() {
		assert.FileExists(t, tableFile(dir, name))
	}

	data, err := os.ReadFile(tableFile(dir, "EventGen"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"event_gen_id":"e1","name":"Monday Jam","venue_id":"v1"}`, lines[0])

	dst := openSample(t)
	require.NoError(t, dst.Load(dir))
	assert.Equal(t, snapshot(t, src), snapshot(t, dst))
}

func TestDumpLoadKeepsKeysVerbatim(t *testing.T) {
	src := openSample(t)
	execSQL(t, src, `INSERT INTO Venue (venue_id, venue) VALUES ('007', 'Bond Bar')`)
	execSQL(t, src, `INSERT INTO EventGen (event_gen_id, name, venue_id) VALUES ('1.5', 'Jam', '007')`)

	dir := t.TempDir()
	require.NoError(t, src.Dump(dir))

	dst := openSample(t)
	require.NoError(t, dst.Load(dir))

	gen, err := dst.GetRow("EventGen", "1.5")
	require.NoError(t, err)
	assert.Equal(t, "007", gen["venue_id"])
	_, err = dst.GetRow("Venue", "007")
	require.NoError(t, err)
	assert.Equal(t, snapshot(t, src), snapshot(t, dst))
}

func TestLoadIsAtomic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(tableFile(dir, "Venue"), []byte(`{"venue_id":"v1","venue":"Blue Note"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(tableFile(dir, "EventGen"), []byte(`{"event_gen_id":"e1","name":"Jam","venue_id":"v404"}`+"\n"), 0o644))

	b := openSample(t)
	err := b.Load(dir)
	var fk *types.FKConstraintError
	require.ErrorAs(t, err, &fk)
	assert.Contains(t, err.Error(), "EventGen record 1")

	assert.Equal(t, 0, rowCount(t, b, "Venue"))
}

func TestLoadSkipsMissingFilesAndExtraFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(tableFile(dir, "Genre"),
		[]byte(`{"genre_id":"g1","genre":"Jazz","origin":{"city":"New Orleans"}}`+"\n"), 0o644))

	b := openSample(t)
	require.NoError(t, b.Load(dir))

	row, err := b.GetRow("Genre", "g1")
	require.NoError(t, err)
	assert.Equal(t, types.Row{"genre_id": "g1", "genre": "Jazz"}, row)
}

func TestLoadMalformedRecord(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(tableFile(dir, "Genre"), []byte("[1, 2]\n"), 0o644))

	b := openSample(t)
	err := b.Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Genre record 1")
}
