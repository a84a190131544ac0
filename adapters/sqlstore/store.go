// Package sqlstore persists tracker collections in a SQL key/value table on
// Postgres (server deployments) or SQLite (a local file).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"sensetrack/adapters/sqlstore/migrations"
	"sensetrack/domain/core"
	"sensetrack/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Store implements ports.KeyValueStore over the kv_store table
type Store struct {
	db  *sqlx.DB
	now core.Clock
}

var _ ports.KeyValueStore = (*Store)(nil)

// Open connects to the database, and for SQLite pins the pool to a single
// connection so ":memory:" databases survive across queries.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewStore creates a store over an open database
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: core.SystemClock}
}

// OpenAndMigrate opens the database, applies pending migrations and returns a ready store
func OpenAndMigrate(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}

	migrator, err := migrations.NewMigrator(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return NewStore(db), nil
}

// DB exposes the underlying handle for migrations and health checks
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key core.StorageKey) ([]byte, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		s.db.Rebind("SELECT value FROM kv_store WHERE store_key = ?"), key.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError(core.ErrNotFound, key.String())
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *Store) Set(ctx context.Context, key core.StorageKey, value []byte) error {
	query := s.db.Rebind(`
		INSERT INTO kv_store (store_key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (store_key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`)

	if _, err := s.db.ExecContext(ctx, query, key.String(), string(value), s.now().UTC()); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key core.StorageKey) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM kv_store WHERE store_key = ?"), key.String()); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]core.StorageKey, error) {
	var raw []string
	if err := s.db.SelectContext(ctx, &raw, "SELECT store_key FROM kv_store ORDER BY store_key"); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	keys := make([]core.StorageKey, len(raw))
	for i, k := range raw {
		keys[i] = core.StorageKey(k)
	}
	return keys, nil
}

// UpdatedAt returns when key was last written
func (s *Store) UpdatedAt(ctx context.Context, key core.StorageKey) (time.Time, error) {
	var ts time.Time
	err := s.db.GetContext(ctx, &ts,
		s.db.Rebind("SELECT updated_at FROM kv_store WHERE store_key = ?"), key.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, core.NewNotFoundError(core.ErrNotFound, key.String())
		}
		return time.Time{}, fmt.Errorf("failed to read %s timestamp: %w", key, err)
	}
	return ts, nil
}

// Ping checks connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
