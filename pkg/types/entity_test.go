package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImputeRow(t *testing.T) {
	venue := Entity{TableName: "Venue", Columns: []string{"venue_id", "venue", "city"}, PrimaryKey: "venue_id"}

	t.Run("restricts to columns and drops missing values", func(t *testing.T) {
		got := venue.ImputeRow(Row{"venue_id": "v1", "venue": "Blue Note", "city": "NULL", "extra": 1})
		assert.Equal(t, Row{"venue_id": "v1", "venue": "Blue Note"}, got)
	})

	t.Run("normalizes the key", func(t *testing.T) {
		got := venue.ImputeRow(Row{"venue_id": 12.0, "venue": "Smalls"})
		assert.Equal(t, "12", got["venue_id"])
	})

	t.Run("no strategy leaves the key unset", func(t *testing.T) {
		got := venue.ImputeRow(Row{"venue": "Smalls"})
		assert.NotContains(t, got, "venue_id")
	})

	t.Run("strategy fills a missing key only", func(t *testing.T) {
		e := venue
		e.Impute = SlugKey("venue")
		assert.Equal(t, "village_vanguard", e.ImputeRow(Row{"venue": " Village Vanguard "})["venue_id"])
		assert.Equal(t, "v1", e.ImputeRow(Row{"venue_id": "v1", "venue": "X"})["venue_id"])
		assert.Equal(t, "vv", e.ImputeRow(Row{"venue_id": "NULL", "venue": "VV"})["venue_id"])
	})

	t.Run("input row is not modified", func(t *testing.T) {
		in := Row{"venue_id": 1.0, "venue": "X"}
		venue.ImputeRow(in)
		assert.Equal(t, 1.0, in["venue_id"])
	})
}

func TestRestrictRow(t *testing.T) {
	ent := Entity{TableName: "EventGen", Columns: []string{"event_gen_id", "name"}, PrimaryKey: "event_gen_id"}
	ent.Impute = UUIDKey()

	got := ent.RestrictRow(Row{"event_gen_id": "007", "name": "Jam", "extra": 1, "venue": "NULL"})
	assert.Equal(t, Row{"event_gen_id": "007", "name": "Jam"}, got, "stored keys are kept verbatim")
	assert.Equal(t, "7", ent.ImputeRow(Row{"event_gen_id": "007"})["event_gen_id"])

	assert.NotContains(t, ent.RestrictRow(Row{"name": "Jam"}), "event_gen_id", "no imputation")
}

func TestHasColumn(t *testing.T) {
	e := Entity{Columns: []string{"a", "b"}}
	assert.True(t, e.HasColumn("b"))
	assert.False(t, e.HasColumn("c"))
}

func TestImputers(t *testing.T) {
	e := Entity{TableName: "Genre", Columns: []string{"genre_id", "genre"}, PrimaryKey: "genre_id"}

	row := Row{}
	UUIDKey()(e, row)
	assert.Len(t, row["genre_id"], 36)

	row = Row{}
	SlugKey("genre")(e, row)
	assert.NotContains(t, row, "genre_id", "no source column, no key")

	assert.Equal(t, "hard_bop", Slug("  Hard Bop "))
}

func TestRelationAllows(t *testing.T) {
	r := Relation{AllowedValues: []any{"v1", int64(2)}}
	assert.True(t, r.Allows("v1"))
	assert.True(t, r.Allows("2"))
	assert.False(t, r.Allows("v3"))
}
