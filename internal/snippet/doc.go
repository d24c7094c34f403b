// Package snippet defines the snippet model and the Store port the deferred
// persistence buffer writes through. Three backends implement the port:
// an embedded Pebble store (default), PostgreSQL, and SQLite.
package snippet
