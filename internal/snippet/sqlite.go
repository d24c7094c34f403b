package snippet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snippets (
	id            TEXT PRIMARY KEY,
	scope         TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	language      TEXT NOT NULL DEFAULT '',
	body          TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snippets_scope_created
	ON snippets (scope, created_at_ms DESC);
`

// SQLiteStore persists snippets in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the SQLite database at path and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("snippet: open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("snippet: ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sn *Snippet) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snippets (id, scope, title, language, body, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			scope = excluded.scope,
			title = excluded.title,
			language = excluded.language,
			body = excluded.body,
			created_at_ms = excluded.created_at_ms`,
		sn.ID, sn.Scope, sn.Title, sn.Language, sn.Body, sn.CreatedAtMs)
	if err != nil {
		return fmt.Errorf("snippet: save %s: %w", sn.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, scope, id string) (*Snippet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scope, title, language, body, created_at_ms
		FROM snippets WHERE scope = ? AND id = ?`, scope, id)
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

func (s *SQLiteStore) List(ctx context.Context, scope string, limit int) ([]*Snippet, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scope, title, language, body, created_at_ms
		FROM snippets WHERE scope = ?
		ORDER BY created_at_ms DESC LIMIT ?`, scope, limit)
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
