package serverrun

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/nicholasjhenry/review-room-sub000/internal/config"
	pebblestore "github.com/nicholasjhenry/review-room-sub000/internal/storage/pebble"
)

func TestGetenvDefault(t *testing.T) {
	t.Setenv("REVIEWROOM_TEST_VAR", "env_value")
	if got := getenvDefault("REVIEWROOM_TEST_VAR", "default"); got != "env_value" {
		t.Fatalf("got %q", got)
	}
	if got := getenvDefault("REVIEWROOM_TEST_VAR_UNSET", "default"); got != "default" {
		t.Fatalf("got %q", got)
	}
}

func TestDataDirFallback(t *testing.T) {
	opts := Options{DataDir: ""}
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.DataDir == "" {
		t.Fatal("expected DataDir after fallback")
	}
	if !filepath.IsAbs(opts.DataDir) && !filepath.HasPrefix(opts.DataDir, "./") {
		t.Fatalf("unexpected data dir %s", opts.DataDir)
	}
}

// TestRunIntegration verifies Run starts and shuts down cleanly. Minimal by
// design since it boots a real server.
func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	opts := Options{
		DataDir:  t.TempDir(),
		HTTPAddr: ":0",
		Fsync:    pebblestore.FsyncModeNever,
		Config:   cfgpkg.Default(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := Run(ctx, opts); err != nil {
		t.Fatalf("run: %v", err)
	}
}
