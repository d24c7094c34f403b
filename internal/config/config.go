package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Storage backends for the snippet store.
const (
	BackendPebble   = "pebble"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DefaultScopeName string         `json:"defaultScopeName" yaml:"defaultScopeName"`
	ScopeNameRegex   string         `json:"scopeNameRegex" yaml:"scopeNameRegex"`
	SnippetMaxBytes  int            `json:"snippetMaxBytes" yaml:"snippetMaxBytes"`
	Buffer           BufferDefaults `json:"buffer" yaml:"buffer"`
	Storage          Storage        `json:"storage" yaml:"storage"`
	HTTPAddr         string         `json:"httpAddr" yaml:"httpAddr"`
}

// BufferDefaults captures the deferred-persistence buffer tunables.
type BufferDefaults struct {
	FlushCount       int   `json:"flushCount" yaml:"flushCount"`
	FlushIdleMs      int64 `json:"flushIdleMs" yaml:"flushIdleMs"`
	MaxAttempts      int   `json:"maxAttempts" yaml:"maxAttempts"`
	RetryBackoffMs   int64 `json:"retryBackoffMs" yaml:"retryBackoffMs"`
	BackoffCeilingMs int64 `json:"backoffCeilingMs" yaml:"backoffCeilingMs"`
}

// Storage selects and configures the snippet store backend.
type Storage struct {
	// Backend is one of "pebble", "postgres", "sqlite".
	Backend string `json:"backend" yaml:"backend"`
	// DSN is the connection string for SQL backends; ignored for pebble.
	DSN string `json:"dsn" yaml:"dsn"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DefaultScopeName: "public",
		ScopeNameRegex:   "[a-z0-9-_]{1,64}",
		SnippetMaxBytes:  1 << 20,
		Buffer: BufferDefaults{
			FlushCount:       10,
			FlushIdleMs:      2000,
			MaxAttempts:      3,
			RetryBackoffMs:   500,
			BackoffCeilingMs: 30_000,
		},
		Storage:  Storage{Backend: BackendPebble},
		HTTPAddr: ":8080",
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
