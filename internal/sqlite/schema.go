package sqlite

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Sample schema: a personal music log. Tables are listed in dependency order.
const (
	createGenre = `CREATE TABLE Genre (
    genre_id TEXT PRIMARY KEY,
    genre TEXT NOT NULL UNIQUE
);`

	createSubGenre = `CREATE TABLE SubGenre (
    subgenre_id TEXT PRIMARY KEY,
    subgenre TEXT NOT NULL,
    genre_id TEXT NOT NULL,
    FOREIGN KEY (genre_id) REFERENCES Genre(genre_id)
);`

	createSong = `CREATE TABLE Song (
    song_id TEXT PRIMARY KEY,
    song TEXT NOT NULL,
    subgenre_id TEXT,
    FOREIGN KEY (subgenre_id) REFERENCES SubGenre(subgenre_id)
);`

	createPerson = `CREATE TABLE Person (
    person_id TEXT PRIMARY KEY,
    public_name TEXT NOT NULL,
    mentor_id TEXT,
    FOREIGN KEY (mentor_id) REFERENCES Person(person_id)
);`

	createInstrument = `CREATE TABLE Instrument (
    instrument_id TEXT PRIMARY KEY,
    instrument TEXT NOT NULL UNIQUE
);`

	createPersonInstrument = `CREATE TABLE PersonInstrument (
    person_instrument_id TEXT PRIMARY KEY,
    person_id TEXT NOT NULL,
    instrument_id TEXT NOT NULL,
    FOREIGN KEY (person_id) REFERENCES Person(person_id),
    FOREIGN KEY (instrument_id) REFERENCES Instrument(instrument_id)
);`

	createVenue = `CREATE TABLE Venue (
    venue_id TEXT PRIMARY KEY,
    venue TEXT NOT NULL,
    city TEXT
);`

	createEventGen = `CREATE TABLE EventGen (
    event_gen_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    venue_id TEXT NOT NULL,
    FOREIGN KEY (venue_id) REFERENCES Venue(venue_id)
);`

	createEventOcc = `CREATE TABLE EventOcc (
    event_occ_id TEXT PRIMARY KEY,
    event_gen_id TEXT NOT NULL,
    venue_id TEXT,
    date TEXT NOT NULL,
    FOREIGN KEY (event_gen_id) REFERENCES EventGen(event_gen_id),
    FOREIGN KEY (venue_id) REFERENCES Venue(venue_id)
);`

	createSongPerform = `CREATE TABLE SongPerform (
    song_perform_id TEXT PRIMARY KEY,
    song_id TEXT NOT NULL,
    event_occ_id TEXT NOT NULL,
    person_instrument_id TEXT,
    FOREIGN KEY (song_id) REFERENCES Song(song_id),
    FOREIGN KEY (event_occ_id) REFERENCES EventOcc(event_occ_id),
    FOREIGN KEY (person_instrument_id) REFERENCES PersonInstrument(person_instrument_id)
);`
)

// Index DDL for the sample schema.
const (
	idxEventGenVenue        = `CREATE INDEX idx_event_gen_venue ON EventGen(venue_id);`
	idxEventOccEventGen     = `CREATE INDEX idx_event_occ_event_gen ON EventOcc(event_gen_id);`
	idxSongPerformEventOcc  = `CREATE INDEX idx_song_perform_event_occ ON SongPerform(event_occ_id);`
	idxPersonInstrumentUniq = `CREATE UNIQUE INDEX idx_person_instrument_unique ON PersonInstrument(person_id, instrument_id);`
)

// sampleDDL lists all CREATE TABLE statements in dependency order.
var sampleDDL = []string{
	createGenre,
	createSubGenre,
	createSong,
	createPerson,
	createInstrument,
	createPersonInstrument,
	createVenue,
	createEventGen,
	createEventOcc,
	createSongPerform,
}

// sampleIndexDDL lists all CREATE INDEX statements.
var sampleIndexDDL = []string{
	idxEventGenVenue,
	idxEventOccEventGen,
	idxSongPerformEventOcc,
	idxPersonInstrumentUniq,
}

// SampleSchema returns the sample schema as one SQL script.
func SampleSchema() string {
	return strings.Join(append(append([]string{}, sampleDDL...), sampleIndexDDL...), "\n\n")
}

// parseSQLScript splits a script into statements on ";". A statement that
// starts with "/" has its leading comment block dropped. Semicolons inside
// string literals or trigger bodies are not understood.
func parseSQLScript(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		stmt := strings.TrimSpace(part)
		if strings.HasPrefix(stmt, "/") {
			pieces := strings.SplitN(stmt, "/", 3)
			stmt = strings.TrimSpace(pieces[len(pieces)-1])
		}
		if stmt == "" {
			continue
		}
		out = append(out, stmt+";")
	}
	return out
}

// InitSchema executes each statement of script, committing after each one,
// then reloads the catalog.
func (b *Backend) InitSchema(script string) error {
	return b.run("init schema", func() error {
		stmts := parseSQLScript(script)
		for _, stmt := range stmts {
			if _, err := b.q().Exec(stmt); err != nil {
				return fmt.Errorf("error in statement\n%s\n%w", stmt, b.classifier().classify(err, "", nil))
			}
			if err := b.commit(); err != nil {
				return err
			}
		}
		b.logger.Info("schema initialized", zap.Int("statements", len(stmts)))
		return b.loadCatalog()
	})
}
