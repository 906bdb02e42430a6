// Package postgres keeps session credentials in a PostgreSQL table.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/and161185/rideshare/internal/storage"
)

// PgxPool is a minimal abstraction over a Postgres connection pool.
// It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	// Exec executes a SQL command and returns the command tag.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// QueryRow executes a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	// Close shuts down the pool and frees resources.
	Close()
}

// Store maps keys of one namespace onto rows of client_kv. The namespace is
// the API base URL, so sessions against different backends never mix.
type Store struct {
	pool      PgxPool
	namespace string
}

var _ storage.Store = (*Store)(nil)

// New opens a pool for dsn. Migrations must already be applied.
func New(ctx context.Context, dsn, namespace string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewWithPool(pool, namespace), nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool PgxPool, namespace string) *Store {
	return &Store{pool: pool, namespace: namespace}
}

// Get selects one value.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM client_kv WHERE namespace=$1 AND key=$2`
	var v string
	if err := s.pool.QueryRow(ctx, q, s.namespace, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	return v, nil
}

// Set upserts one value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO client_kv (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`
	_, err := s.pool.Exec(ctx, q, s.namespace, key, value)
	return err
}

// Delete removes keys in one statement.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	const q = `DELETE FROM client_kv WHERE namespace=$1 AND key = ANY($2)`
	_, err := s.pool.Exec(ctx, q, s.namespace, keys)
	return err
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
