// Package sqlite implements the rowkeeper engine on top of SQLite.
//
// Each public operation opens a fresh connection with foreign-key
// enforcement switched on, runs inside a single transaction, commits at the
// end and releases the connection. No lock on the database file is held
// between operations, and nothing is shared between them except the schema
// catalog.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

const driverName = "sqlite"

var _ types.Engine = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithImputer registers the primary-key strategy for table.
func WithImputer(table string, f types.ImputeFunc) Option {
	return func(b *Backend) {
		b.imputers[table] = f
	}
}

// querier is the read/write surface shared by *sql.Tx and *sql.DB.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
}

// Backend implements types.Engine for a SQLite database file.
// Operations are serialized; a Backend may be shared between goroutines.
type Backend struct {
	mu       sync.Mutex
	config   types.Config
	logger   *zap.Logger
	imputers map[string]types.ImputeFunc
	closed   bool

	db   *sql.DB
	conn *sql.Conn
	tx   *sql.Tx

	entities map[string]types.Entity
	names    []string // table names in catalog order
}

// Open creates the data directory if needed, connects to the database and
// loads the schema catalog.
func Open(config types.Config, opts ...Option) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{
		config:   config,
		logger:   zap.NewNop(),
		imputers: make(map[string]types.ImputeFunc),
	}
	for _, opt := range opts {
		opt(b)
	}

	if err := os.MkdirAll(filepath.Dir(config.DBPath()), 0o755); err != nil {
		return nil, err
	}

	if err := b.run("open", b.loadCatalog); err != nil {
		return nil, err
	}
	return b, nil
}

// Config returns the configuration the backend was opened with.
func (b *Backend) Config() types.Config {
	return b.config
}

// Close marks the engine closed. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.disconnect()
}

// connect opens the database and pins a single connection. Foreign keys are
// off by default in SQLite and the pragma is ignored inside a transaction,
// so it runs before the first BEGIN on every new connection.
func (b *Backend) connect() error {
	db, err := sql.Open(driverName, b.config.DBPath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		db.Close()
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	b.db = db
	b.conn = conn
	return b.begin()
}

func (b *Backend) begin() error {
	tx, err := b.conn.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	b.tx = tx
	return nil
}

// disconnect drops the transaction (and with it any uncommitted writes),
// the connection and the pool.
func (b *Backend) disconnect() error {
	if b.tx != nil {
		_ = b.tx.Rollback()
		b.tx = nil
	}
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		return err
	}
	return nil
}

// reset closes any leftover connection and opens a fresh one, so every
// operation sees only committed state.
func (b *Backend) reset() error {
	if err := b.disconnect(); err != nil {
		b.logger.Warn("closing connection", zap.Error(err))
	}
	b.logger.Debug("connection reset", zap.String("db", b.config.DBPath()))
	return b.connect()
}

// commit persists pending writes unless the engine is read-only, then opens
// the next transaction on the same connection. A read-only engine keeps the
// writes pending until release discards them.
func (b *Backend) commit() error {
	if b.config.ReadOnly {
		b.logger.Debug("read-only engine, writes left uncommitted")
		return nil
	}
	if err := b.tx.Commit(); err != nil {
		b.tx = nil
		return &types.DBError{Raw: err.Error(), Err: err}
	}
	return b.begin()
}

// rollback discards pending writes and opens the next transaction.
func (b *Backend) rollback() error {
	if b.tx != nil {
		if err := b.tx.Rollback(); err != nil {
			b.logger.Warn("rollback", zap.Error(err))
		}
	}
	return b.begin()
}

// q returns the querier for the current transaction.
func (b *Backend) q() querier {
	return b.tx
}

// run executes fn as one public operation on a fresh connection. Whatever fn
// left uncommitted is rolled back and the connection is released before run
// returns, so a failing fn leaves the store unchanged.
func (b *Backend) run(op string, fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return types.ErrEngineClosed
	}
	if err := b.reset(); err != nil {
		return err
	}
	defer b.release(op)

	if err := fn(); err != nil {
		b.logger.Debug("operation failed", zap.String("op", op), zap.Error(err))
		return err
	}
	return nil
}

// release ends the operation's transaction and closes its connection.
func (b *Backend) release(op string) {
	if err := b.disconnect(); err != nil {
		b.logger.Warn("releasing connection", zap.String("op", op), zap.Error(err))
	}
}

// queryRows runs query and returns every result row. BLOB and TEXT cells
// come back as strings.
func queryRows(q querier, query string, args ...any) ([]types.Row, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []types.Row
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(types.Row, len(cols))
		for i, c := range cols {
			if raw, ok := cells[i].([]byte); ok {
				row[c] = string(raw)
				continue
			}
			row[c] = cells[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// quoteIdent quotes a table or column name for use in SQL text.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// newOpID returns a UUID v7 that ties together the log lines of one
// cascading operation.
func newOpID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
