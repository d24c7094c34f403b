// Package config loads Review Room configuration from defaults, an optional
// JSON or YAML file, and REVIEWROOM_* environment overlays, in that order.
package config
