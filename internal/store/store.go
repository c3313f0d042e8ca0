// Package store persists generation runs in SQLite or PostgreSQL and reads
// and writes YAML result snapshots.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lawnchairsociety/tiledwfc/internal/logger"
)

var (
	ErrNotFound      = errors.New("store: run not found")
	ErrDuplicateRun  = errors.New("store: run already saved")
	ErrUnknownDriver = errors.New("store: unknown driver")
)

// Store wraps the database connection.
type Store struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open connects to the configured database and creates the schema.
func Open(cfg Config) (*Store, error) {
	var (
		dialect Dialect
		dsn     string
	)
	switch DialectType(cfg.Driver) {
	case DialectSQLite, "":
		dialect = NewDialect(DialectSQLite)
		dsn = cfg.SQLitePath
		if dir := filepath.Dir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DialectPostgres:
		dialect = NewDialect(DialectPostgres)
		dsn = cfg.Postgres.DSN()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if DialectType(cfg.Driver) == DialectPostgres {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	s := &Store{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("Store opened", "driver", dialect.DriverName())
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			` + s.dialect.IDColumn() + `,
			tileset TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			seed TEXT NOT NULL,
			status TEXT NOT NULL,
			steps INTEGER NOT NULL DEFAULT 0,
			attempts INTEGER NOT NULL DEFAULT 1,
			observed TEXT NOT NULL DEFAULT '[]',
			fingerprint TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_tileset ON runs(tileset)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
	}

	// columns added after the first release; errors mean they already exist
	safeMigrations := []string{
		`ALTER TABLE runs ADD COLUMN fingerprint TEXT`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	for _, m := range safeMigrations {
		_, _ = s.db.Exec(m)
	}

	// older rows keep a NULL fingerprint, which the index does not compare
	unique := `CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint)`
	if _, err := s.db.Exec(unique); err != nil {
		return fmt.Errorf("migration failed: %w\nSQL: %s", err, unique)
	}
	return nil
}
