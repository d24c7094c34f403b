package journal

import "encoding/binary"

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - journal/m
// - journal/e/{seq_be8}

var (
	metaKey     = []byte("journal/m")
	entryPrefix = []byte("journal/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyEntry builds the event key with a big-endian sequence for proper ordering.
func KeyEntry(seq uint64) []byte {
	k := make([]byte, 0, len(entryPrefix)+8)
	k = append(k, entryPrefix...)
	k = appendBE8(k, seq)
	return k
}
