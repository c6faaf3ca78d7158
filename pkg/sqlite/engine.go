// Package sqlite provides the public API for the SQLite rowkeeper engine.
// It exposes the factory and options while keeping the implementation
// internal.
package sqlite

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/rowkeeper/internal/sqlite"
	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

// Option configures the engine returned by Open.
type Option = sqlite.Option

// Open connects to the database described by cfg and loads its schema.
//
// Example:
//
//	eng, err := sqlite.Open(types.Config{DataDir: ".rowkeeper-db"},
//	    sqlite.WithImputer("Venue", types.SlugKey("venue")))
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
func Open(cfg types.Config, opts ...Option) (types.Engine, error) {
	b, err := sqlite.Open(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return sqlite.WithLogger(l)
}

// WithImputer registers the primary-key strategy for table.
func WithImputer(table string, f types.ImputeFunc) Option {
	return sqlite.WithImputer(table, f)
}

// SampleSchema returns the DDL of the bundled music-log schema.
func SampleSchema() string {
	return sqlite.SampleSchema()
}
