// Package id provides 128-bit, lexicographically sortable identifiers used as
// buffer tokens for queued snippet submissions.
//
// A token encodes its creation time in the high 8 bytes and a per-process
// monotonic sequence in the low 8 bytes, so tokens sort by creation order and
// never collide within one process. Tokens are opaque to callers: the hex
// string form is the public handle, distinct from a snippet's eventual
// persisted identity.
package id
