package config

import (
	"os"
	"strconv"
)

// FromEnv overlays REVIEWROOM_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("REVIEWROOM_DEFAULT_SCOPE_NAME"); v != "" {
		cfg.DefaultScopeName = v
	}
	if v := os.Getenv("REVIEWROOM_SCOPE_NAME_REGEX"); v != "" {
		cfg.ScopeNameRegex = v
	}
	if v := os.Getenv("REVIEWROOM_SNIPPET_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SnippetMaxBytes = n
		}
	}
	if v := os.Getenv("REVIEWROOM_BUFFER_FLUSH_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Buffer.FlushCount = n
		}
	}
	if v := os.Getenv("REVIEWROOM_BUFFER_FLUSH_IDLE_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Buffer.FlushIdleMs = n
		}
	}
	if v := os.Getenv("REVIEWROOM_BUFFER_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Buffer.MaxAttempts = n
		}
	}
	if v := os.Getenv("REVIEWROOM_BUFFER_RETRY_BACKOFF_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Buffer.RetryBackoffMs = n
		}
	}
	if v := os.Getenv("REVIEWROOM_BUFFER_BACKOFF_CEILING_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Buffer.BackoffCeilingMs = n
		}
	}
	if v := os.Getenv("REVIEWROOM_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("REVIEWROOM_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("REVIEWROOM_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
}
