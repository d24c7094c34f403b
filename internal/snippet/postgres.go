package snippet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS snippets (
	id            TEXT PRIMARY KEY,
	scope         TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	language      TEXT NOT NULL DEFAULT '',
	body          TEXT NOT NULL,
	created_at_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snippets_scope_created
	ON snippets (scope, created_at_ms DESC);
`

// PostgresStore persists snippets in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects with the given DSN and ensures the schema exists.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("snippet: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("snippet: ping postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("snippet: ensure schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, sn *Snippet) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snippets (id, scope, title, language, body, created_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			scope = EXCLUDED.scope,
			title = EXCLUDED.title,
			language = EXCLUDED.language,
			body = EXCLUDED.body,
			created_at_ms = EXCLUDED.created_at_ms`,
		sn.ID, sn.Scope, sn.Title, sn.Language, sn.Body, sn.CreatedAtMs)
	if err != nil {
		return fmt.Errorf("snippet: save %s: %w", sn.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, scope, id string) (*Snippet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scope, title, language, body, created_at_ms
		FROM snippets WHERE scope = $1 AND id = $2`, scope, id)
	var sn Snippet
	err := row.Scan(&sn.ID, &sn.Scope, &sn.Title, &sn.Language, &sn.Body, &sn.CreatedAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sn, nil
}

func (s *PostgresStore) List(ctx context.Context, scope string, limit int) ([]*Snippet, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scope, title, language, body, created_at_ms
		FROM snippets WHERE scope = $1
		ORDER BY created_at_ms DESC LIMIT $2`, scope, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Snippet
	for rows.Next() {
		var sn Snippet
		if err := rows.Scan(&sn.ID, &sn.Scope, &sn.Title, &sn.Language, &sn.Body, &sn.CreatedAtMs); err != nil {
			return nil, err
		}
		out = append(out, &sn)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
