package runtime

import (
	"context"
	"testing"

	cfgpkg "github.com/nicholasjhenry/review-room-sub000/internal/config"
	"github.com/nicholasjhenry/review-room-sub000/internal/snippet"
	pebblestore "github.com/nicholasjhenry/review-room-sub000/internal/storage/pebble"
)

func TestOpenCloseHealth(t *testing.T) {
	rt, err := Open(Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	defer rt.Close(context.Background())
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestCloseDrainsBufferToStore(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Buffer.FlushCount = 99
	cfg.Buffer.FlushIdleMs = 60_000
	dir := t.TempDir()

	rt, err := Open(Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever, Config: cfg})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	ctx := context.Background()

	sn := &snippet.Snippet{ID: "s1", Scope: "alice", Body: "x", CreatedAtMs: 1}
	if _, err := rt.Buffer().Enqueue(ctx, "alice", sn); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := rt.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	// The drained entry must be durable across a reopen.
	rt2, err := Open(Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever, Config: cfg})
	if err != nil {
		t.Fatalf("reopen runtime: %v", err)
	}
	defer rt2.Close(ctx)
	got, err := rt2.Store().Get(ctx, "alice", "s1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Body != "x" {
		t.Fatalf("body = %q", got.Body)
	}
}

func TestUnknownBackendRejected(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Storage.Backend = "mainframe"
	if _, err := Open(Options{DataDir: t.TempDir(), Config: cfg}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
