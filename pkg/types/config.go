package types

import (
	"errors"
	"path/filepath"
)

// DefaultDBFile is the database file name used when Config.DBFile is empty.
const DefaultDBFile = "rowkeeper.db"

// Config holds the parameters for opening an Engine.
type Config struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`
	DBFile  string `json:"db_file" yaml:"db_file"`

	// Me is the person id that identity-aware operations default to.
	Me string `json:"me" yaml:"me"`

	// ReadOnly engines execute writes but never commit them.
	ReadOnly bool `json:"read_only" yaml:"read_only"`
}

// Config validation errors.
var (
	ErrDataDirEmpty = errors.New("data dir must not be empty")
)

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.DataDir == "" && c.DBFile == "" {
		return ErrDataDirEmpty
	}
	return nil
}

// DBPath returns the database file location. A relative DBFile is resolved
// against DataDir; an absolute one is returned as is.
func (c Config) DBPath() string {
	file := c.DBFile
	if file == "" {
		file = DefaultDBFile
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.DataDir, file)
}

// PersonDir returns the per-person data directory. An empty personID
// resolves to Me.
func (c Config) PersonDir(personID string) string {
	if personID == "" {
		personID = c.Me
	}
	return filepath.Join(c.DataDir, "people", personID)
}
