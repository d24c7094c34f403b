package id

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"sync"
	"time"
)

// Token is a 128-bit, lexicographically sortable identifier encoded as 16
// bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence].
type Token [16]byte

// Bytes returns the raw 16-byte representation.
func (t Token) Bytes() []byte { b := make([]byte, 16); copy(b, t[:]); return b }

// String returns a hex string.
func (t Token) String() string { return hex.EncodeToString(t[:]) }

// IsZero reports whether the token is the zero value.
func (t Token) IsZero() bool { return t == Token{} }

// TimeMs returns the embedded creation time in milliseconds since Unix epoch.
func (t Token) TimeMs() int64 { return int64(binary.BigEndian.Uint64(t[0:8])) }

// Compare returns -1, 0, 1 based on lexical comparison.
func (t Token) Compare(other Token) int {
	for i := 0; i < 16; i++ {
		if t[i] < other[i] {
			return -1
		}
		if t[i] > other[i] {
			return 1
		}
	}
	return 0
}

// MarshalJSON encodes the token as its hex string.
func (t Token) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON decodes a hex token string.
func (t *Token) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return errors.New("id: token must be a hex string")
	}
	parsed, err := Parse(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Parse decodes a hex token string produced by Token.String.
func Parse(s string) (Token, error) {
	var t Token
	b, err := hex.DecodeString(s)
	if err != nil {
		return Token{}, err
	}
	if len(b) != 16 {
		return Token{}, errors.New("id: token must be 16 bytes")
	}
	copy(t[:], b)
	return t, nil
}

// Generator produces monotonically increasing tokens per process.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	sequence uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new Token. If the clock goes backwards, it reuses lastMs and
// increments the sequence. If the sequence overflows within one millisecond,
// it waits for the next millisecond.
func (g *Generator) Next() Token {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	if ms == g.lastMs {
		if g.sequence == math.MaxUint64 {
			for {
				ms = NowMs()
				if ms > g.lastMs {
					break
				}
				time.Sleep(time.Millisecond / 8)
			}
			g.sequence = 0
		} else {
			g.sequence++
		}
	} else {
		g.sequence = 0
	}

	g.lastMs = ms
	return makeToken(ms, g.sequence)
}

func makeToken(ms int64, seq uint64) Token {
	var t Token
	binary.BigEndian.PutUint64(t[0:8], uint64(ms))
	binary.BigEndian.PutUint64(t[8:16], seq)
	return t
}
