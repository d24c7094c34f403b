// Package pebblestore wraps a Pebble database with a write-sync policy and
// small helpers used by the embedded snippet store and the event journal.
package pebblestore
