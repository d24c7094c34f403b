package runtime

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nicholasjhenry/review-room-sub000/internal/buffer"
	cfgpkg "github.com/nicholasjhenry/review-room-sub000/internal/config"
	"github.com/nicholasjhenry/review-room-sub000/internal/journal"
	"github.com/nicholasjhenry/review-room-sub000/internal/scope"
	"github.com/nicholasjhenry/review-room-sub000/internal/snippet"
	pebblestore "github.com/nicholasjhenry/review-room-sub000/internal/storage/pebble"
	"github.com/nicholasjhenry/review-room-sub000/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	Fsync   pebblestore.FsyncMode
	Config  cfgpkg.Config
	Logger  log.Logger
}

// Runtime wires storage, config, journal and buffer for a single-node
// instance.
type Runtime struct {
	db       *pebblestore.DB
	store    snippet.Store
	journal  *journal.Journal
	resolver *scope.Resolver
	buf      *buffer.Buffer
	config   cfgpkg.Config
	logger   log.Logger

	// ownStore is set for SQL backends, which hold their own connection
	// pool. The Pebble-backed store shares db and must not be double-closed.
	ownStore bool
}

// Open initializes storage and the buffer and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	if opts.DataDir == "" {
		return nil, errors.New("runtime: Options.DataDir is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	cfg := opts.Config

	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync})
	if err != nil {
		return nil, err
	}

	jr, err := journal.Open(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	resolver, err := scope.NewResolver(cfg.ScopeNameRegex, cfg.DefaultScopeName)
	if err != nil {
		db.Close()
		return nil, err
	}

	var store snippet.Store
	ownStore := false
	switch cfg.Storage.Backend {
	case "", cfgpkg.BackendPebble:
		store = snippet.NewPebbleStore(db)
	case cfgpkg.BackendPostgres:
		store, err = snippet.OpenPostgres(cfg.Storage.DSN)
		ownStore = true
	case cfgpkg.BackendSQLite:
		dsn := cfg.Storage.DSN
		if dsn == "" {
			dsn = filepath.Join(opts.DataDir, "snippets.db")
		}
		store, err = snippet.OpenSQLite(dsn)
		ownStore = true
	default:
		err = fmt.Errorf("runtime: unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	bcfg := buffer.Config{
		FlushCount:     cfg.Buffer.FlushCount,
		FlushIdle:      time.Duration(cfg.Buffer.FlushIdleMs) * time.Millisecond,
		MaxAttempts:    cfg.Buffer.MaxAttempts,
		RetryBackoff:   time.Duration(cfg.Buffer.RetryBackoffMs) * time.Millisecond,
		BackoffCeiling: time.Duration(cfg.Buffer.BackoffCeilingMs) * time.Millisecond,
	}
	buf, err := buffer.New(bcfg, store.Save,
		buffer.WithLogger(logger),
		buffer.WithJournal(jr))
	if err != nil {
		if ownStore {
			store.Close()
		}
		db.Close()
		return nil, err
	}

	return &Runtime{
		db:       db,
		store:    store,
		journal:  jr,
		resolver: resolver,
		buf:      buf,
		config:   cfg,
		logger:   logger,
		ownStore: ownStore,
	}, nil
}

// Close drains the buffer, then closes storage. Entries queued at shutdown
// get one final flush before resources are released.
func (r *Runtime) Close(ctx context.Context) error {
	var firstErr error
	if r.buf != nil {
		if err := r.buf.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.ownStore && r.store != nil {
		if err := r.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CheckHealth performs a simple storage health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("runtime: db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// DB exposes the underlying Pebble DB for advanced operations.
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Store returns the snippet store.
func (r *Runtime) Store() snippet.Store { return r.store }

// Journal returns the buffer event journal.
func (r *Runtime) Journal() *journal.Journal { return r.journal }

// Buffer returns the deferred persistence buffer.
func (r *Runtime) Buffer() *buffer.Buffer { return r.buf }

// Resolver returns the scope resolver.
func (r *Runtime) Resolver() *scope.Resolver { return r.resolver }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the runtime logger.
func (r *Runtime) Logger() log.Logger { return r.logger }
