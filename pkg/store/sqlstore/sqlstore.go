// Package sqlstore provides the SQL implementation of store.Store.
// It runs on SQLite (mattn/go-sqlite3 or modernc.org/sqlite) and on Postgres (pgx).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Zerofisher/marinedb/pkg/store"
)

var _ store.Store = (*Store)(nil)

// Config holds configuration for the SQL store.
type Config struct {
	// Driver is one of DriverSQLite3 (default), DriverSQLite or DriverPostgres.
	Driver string

	// Path to the SQLite database file. Ignored for Postgres.
	Path string

	// DSN overrides the connection string. Required for Postgres.
	DSN string

	// WAL enables WAL journal mode on SQLite.
	WAL bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store is the SQL implementation of store.Store.
type Store struct {
	db     *sql.DB
	d      dialect
	path   string
	logger *slog.Logger

	// Write transaction state
	mu    sync.Mutex
	tx    *sql.Tx
	stmts map[string]*sql.Stmt // Prepared statements within tx
}

// Open connects to the database and provisions the schema.
// On any failure the connection is closed before returning.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if d.isSQLite() && dsn == "" {
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite path required")
		}
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		dsn = d.dsn(cfg.Path, cfg.WAL)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn required", d.name)
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}

	// Single writer, single connection: pragmas and the batch tx stay on it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", d.name, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		db:     db,
		d:      d,
		path:   cfg.Path,
		logger: logger,
		stmts:  make(map[string]*sql.Stmt),
	}

	if err := s.Provision(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("provision schema: %w", err)
	}

	return s, nil
}

// Close closes the database. An open batch is rolled back first.
func (s *Store) Close() error {
	if err := s.RollbackBatch(); err != nil {
		s.logger.Warn("rollback on close failed", "error", err)
	}
	return s.db.Close()
}

// Path returns the database file path (empty for Postgres).
func (s *Store) Path() string {
	return s.path
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.d.name
}

// DB returns the underlying database connection for direct queries.
// Use with caution - prefer using the Store interface methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Rebind rewrites '?' placeholders for the configured engine.
func (s *Store) Rebind(query string) string {
	return s.d.rebind(query)
}

// LikeOperator returns the case-insensitive substring operator of the engine.
func (s *Store) LikeOperator() string {
	return s.d.like
}

// Paginate returns a LIMIT/OFFSET clause for the engine, or "" when both are unset.
func (s *Store) Paginate(limit, offset int) string {
	return s.d.paginate(limit, offset)
}
