package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrieveRowError(t *testing.T) {
	err := fmt.Errorf("cascade: %w", &RetrieveRowError{Op: "delete", Table: "Venue", Key: int64(7)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, `cascade: delete: no row "7" in Venue`, err.Error())
}

func TestConstraintErrorMessages(t *testing.T) {
	unique := &UniqueConstraintError{
		Table:   "Genre",
		Columns: [][]string{{"genre"}},
		Details: []UniqueViolation{
			{Table: "Genre", Columns: []string{"genre"}, Value: []any{"Blues"}, Reason: ReasonDuplicateInInput, Count: 2},
		},
	}
	assert.Equal(t, "Genre: unique constraint failed\n  UNIQUE Genre(genre) = (\"Blues\"): duplicate within input (2 times)", unique.Error())

	bare := &UniqueConstraintError{Table: "Genre", Columns: [][]string{{"genre"}}}
	assert.Equal(t, "Genre: unique constraint failed\n  UNIQUE Genre(genre)", bare.Error())

	notNull := &NotNullConstraintError{Table: "Venue", Columns: []string{"venue"}}
	assert.Equal(t, "Venue: not null constraint failed\n  NOT NULL Venue.venue", notNull.Error())

	fk := &FKConstraintError{Table: "Venue", Blocking: []BlockingConstraint{{
		LeftTable: "EventGen", LeftPK: "e1", LeftColumn: "venue_id",
		RightTable: "Venue", RightColumn: "venue_id", Value: "v1",
	}}}
	assert.Equal(t, "Venue: foreign key constraint failed\n  FOREIGN KEY EventGen(venue_id) row \"e1\" references Venue(venue_id) = \"v1\"", fk.Error())
	require.Len(t, fk.Violations(), 1)
	assert.Equal(t, fk.Blocking[0], fk.Violations()[0])
	assert.Equal(t, KindForeignKey, fk.Violations()[0].Kind())
}

func TestConstraintErrorInterface(t *testing.T) {
	var errs = []error{
		&UniqueConstraintError{Details: []UniqueViolation{{}}},
		&NotNullConstraintError{Details: []NotNullViolation{{}}},
		&FKConstraintError{Details: []ForeignKeyViolation{{}}},
	}
	kinds := []ViolationKind{KindUnique, KindNotNull, KindForeignKey}
	for i, err := range errs {
		var ce ConstraintError
		if assert.True(t, errors.As(err, &ce)) {
			assert.Equal(t, kinds[i], ce.Violations()[0].Kind())
		}
	}
}

func TestSchemaAndDBError(t *testing.T) {
	se := &SchemaError{Msg: "foreign keys form a cycle among [A, B]", Err: ErrCyclicDependency}
	assert.ErrorIs(t, se, ErrCyclicDependency)
	assert.Equal(t, "schema: foreign keys form a cycle among [A, B]", se.Error())
	assert.Equal(t, "schema: table T: bad", (&SchemaError{Table: "T", Msg: "bad"}).Error())

	raw := errors.New("disk I/O error")
	de := &DBError{Table: "Venue", Raw: raw.Error(), Err: raw}
	assert.ErrorIs(t, de, raw)
	assert.Equal(t, "db error on Venue: disk I/O error", de.Error())
}

func TestViolationStrings(t *testing.T) {
	fk := ForeignKeyViolation{
		ConstrainedTable: "EventGen", ConstrainedColumns: []string{"venue_id"},
		ReferredTable: "Venue", ReferredColumns: []string{"venue_id"},
		InvalidValues: []any{"v404", int64(3)},
	}
	assert.Equal(t, `FOREIGN KEY EventGen(venue_id) -> Venue(venue_id): invalid ("v404", "3")`, fk.String())

	u := UniqueViolation{Table: "Venue", Columns: []string{"venue_id"}, Value: []any{"v1"}, Reason: ReasonAlreadyExists}
	assert.Equal(t, `UNIQUE Venue(venue_id) = ("v1"): already exists`, u.String())

	assert.Equal(t, "NOT NULL Venue.venue", NotNullViolation{Table: "Venue", Column: "venue"}.String())
}
