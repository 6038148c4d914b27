package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the token in a session_tokens row keyed by scope.
type PostgresStore struct {
	db    *pgxpool.Pool
	scope string
}

// NewPostgres builds a Postgres-backed store for the given scope.
func NewPostgres(db *pgxpool.Pool, scope string) *PostgresStore {
	return &PostgresStore{db: db, scope: scope}
}

// EnsureSchema creates the session_tokens table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS session_tokens (
        scope      TEXT PRIMARY KEY,
        token      TEXT NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	if err != nil {
		return fmt.Errorf("create session_tokens: %w", err)
	}
	return nil
}

// Get returns the stored token or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRow(ctx, `SELECT token FROM session_tokens WHERE scope = $1`, s.scope).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// Set upserts the token for the scope.
func (s *PostgresStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}
	_, err := s.db.Exec(ctx, `INSERT INTO session_tokens (scope, token, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (scope) DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at`, s.scope, token)
	return err
}

// Clear deletes the token row for the scope.
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM session_tokens WHERE scope = $1`, s.scope)
	return err
}
