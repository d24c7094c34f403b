package snippet

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no snippet matches.
var ErrNotFound = errors.New("snippet: not found")

// Store is the persistence port the buffer flushes through, plus the read
// side used by the web API. Save must be durable when it returns nil: the
// buffer treats any error as a transient persistence failure and retries.
type Store interface {
	Save(ctx context.Context, s *Snippet) error
	Get(ctx context.Context, scope, id string) (*Snippet, error)
	List(ctx context.Context, scope string, limit int) ([]*Snippet, error)
	Close() error
}
