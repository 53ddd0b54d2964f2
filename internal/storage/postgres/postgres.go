// Package postgres implements storage.Store on a PostgreSQL table through
// a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mamaboss/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS mamaboss_documents (
    scope      TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (scope, key)
)`

type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// Open connects to connString and creates the documents table if needed.
func Open(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Get(ctx context.Context, scope, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM mamaboss_documents WHERE scope = $1 AND key = $2`, scope, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, scope, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO mamaboss_documents (scope, key, value, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		scope, key, string(value),
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, scope, key string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM mamaboss_documents WHERE scope = $1 AND key = $2`, scope, key,
	); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, scope string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM mamaboss_documents WHERE scope = $1`, scope); err != nil {
		return fmt.Errorf("clear scope: %w", err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, scope string) ([]string, error) {
	return s.strings(ctx, `SELECT key FROM mamaboss_documents WHERE scope = $1 ORDER BY key`, scope)
}

func (s *Store) Scopes(ctx context.Context) ([]string, error) {
	return s.strings(ctx, `SELECT DISTINCT scope FROM mamaboss_documents WHERE scope <> '' ORDER BY scope`)
}

func (s *Store) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
