package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/nicholasjhenry/review-room-sub000/internal/config"
	"github.com/nicholasjhenry/review-room-sub000/internal/runtime"
	httpserver "github.com/nicholasjhenry/review-room-sub000/internal/server/http"
	pebblestore "github.com/nicholasjhenry/review-room-sub000/internal/storage/pebble"
	logpkg "github.com/nicholasjhenry/review-room-sub000/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// drainTimeout bounds how long shutdown waits for the buffer to flush the
// remaining scope queues.
const drainTimeout = 30 * time.Second

// Run starts the HTTP server and blocks until ctx is cancelled. On shutdown
// the buffer is drained before storage closes.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = opts.Config.HTTPAddr
	}

	logCfg := &logpkg.Config{
		Level:  getenvDefault("REVIEWROOM_LOG_LEVEL", "info"),
		Format: getenvDefault("REVIEWROOM_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(logCfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(logCfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{
		DataDir: storeDir,
		Fsync:   opts.Fsync,
		Config:  opts.Config,
		Logger:  procLogger,
	})
	if err != nil {
		return err
	}

	procLogger.Info("starting reviewroom server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("backend", rt.Config().Storage.Backend),
		logpkg.Int("flush_count", rt.Config().Buffer.FlushCount),
		logpkg.Int64("flush_idle_ms", rt.Config().Buffer.FlushIdleMs))

	hsrv := httpserver.New(rt, procLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server failed", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	// Stop accepting requests first, then drain the buffer and close storage.
	hsrv.Close()
	wg.Wait()

	dctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := rt.Close(dctx); err != nil {
		procLogger.Error("shutdown incomplete", logpkg.Err(err))
		return err
	}
	procLogger.Info("shutdown complete")
	return nil
}
