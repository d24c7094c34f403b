package snippet

import (
	"context"
	"errors"
	"strings"
	"testing"

	pebblestore "github.com/nicholasjhenry/review-room-sub000/internal/storage/pebble"
)

func TestValidate(t *testing.T) {
	valid := Snippet{ID: "a", Scope: "public", Body: "package main"}

	if err := valid.Validate(0); err != nil {
		t.Fatalf("valid snippet rejected: %v", err)
	}

	missing := valid
	missing.Body = ""
	if err := missing.Validate(0); !errors.Is(err, ErrBodyRequired) {
		t.Fatalf("expected ErrBodyRequired, got %v", err)
	}

	noScope := valid
	noScope.Scope = ""
	if err := noScope.Validate(0); !errors.Is(err, ErrScopeRequired) {
		t.Fatalf("expected ErrScopeRequired, got %v", err)
	}

	big := valid
	big.Body = strings.Repeat("x", 100)
	if err := big.Validate(64); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
	if err := big.Validate(0); err != nil {
		t.Fatalf("size cap should be disabled at 0: %v", err)
	}
}

func openTestStore(t *testing.T) *PebbleStore {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeNever,
	})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPebbleStore(db)
}

func TestPebbleSaveGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sn := &Snippet{ID: "s1", Scope: "alice", Title: "hello", Body: "fmt.Println", CreatedAtMs: 100}
	if err := s.Save(ctx, sn); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get(ctx, "alice", "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "hello" || got.Body != "fmt.Println" {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := s.Get(ctx, "alice", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, "bob", "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("scope isolation broken: %v", err)
	}
}

func TestPebbleListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		sn := &Snippet{ID: id, Scope: "alice", Body: "x", CreatedAtMs: int64(100 + i)}
		if err := s.Save(ctx, sn); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	other := &Snippet{ID: "z", Scope: "bob", Body: "y", CreatedAtMs: 999}
	if err := s.Save(ctx, other); err != nil {
		t.Fatalf("save other scope: %v", err)
	}

	out, err := s.List(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 snippets, got %d", len(out))
	}
	if out[0].ID != "c" || out[2].ID != "a" {
		t.Fatalf("not newest-first: %s..%s", out[0].ID, out[2].ID)
	}

	limited, err := s.List(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "c" {
		t.Fatalf("limit not honored: %+v", limited)
	}
}
