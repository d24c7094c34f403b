package snippet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/nicholasjhenry/review-room-sub000/internal/storage/pebble"
)

// PebbleStore persists snippets in the embedded Pebble database. Keys are
// laid out as snip/<scope>/<id> so a single prefix scan lists a scope.
type PebbleStore struct {
	db *pebblestore.DB
}

// NewPebbleStore wraps an already-open Pebble database. The caller owns the
// database lifecycle unless Close is used.
func NewPebbleStore(db *pebblestore.DB) *PebbleStore {
	return &PebbleStore{db: db}
}

func snippetKey(scope, id string) []byte {
	return []byte("snip/" + scope + "/" + id)
}

func (s *PebbleStore) Save(_ context.Context, sn *Snippet) error {
	data, err := json.Marshal(sn)
	if err != nil {
		return fmt.Errorf("snippet: encode %s: %w", sn.ID, err)
	}
	return s.db.Set(snippetKey(sn.Scope, sn.ID), data)
}

func (s *PebbleStore) Get(_ context.Context, scope, id string) (*Snippet, error) {
	data, err := s.db.Get(snippetKey(scope, id))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var sn Snippet
	if err := json.Unmarshal(data, &sn); err != nil {
		return nil, fmt.Errorf("snippet: decode %s/%s: %w", scope, id, err)
	}
	return &sn, nil
}

// List returns up to limit snippets in a scope, newest first. limit <= 0
// means no cap.
func (s *PebbleStore) List(_ context.Context, scope string, limit int) ([]*Snippet, error) {
	lo, hi := pebblestore.PrefixRange([]byte("snip/" + scope + "/"))
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*Snippet
	for iter.First(); iter.Valid(); iter.Next() {
		var sn Snippet
		if err := json.Unmarshal(iter.Value(), &sn); err != nil {
			return nil, fmt.Errorf("snippet: decode %s: %w", iter.Key(), err)
		}
		out = append(out, &sn)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAtMs > out[j].CreatedAtMs })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
