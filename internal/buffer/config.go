package buffer

import "time"

const (
	DefaultFlushCount     = 10
	DefaultFlushIdle      = 2 * time.Second
	DefaultMaxAttempts    = 3
	DefaultRetryBackoff   = 500 * time.Millisecond
	DefaultBackoffCeiling = 30 * time.Second
)

// Config tunes flush and retry behavior. The zero value is usable: every
// field falls back to its default.
type Config struct {
	// FlushCount flushes a scope as soon as its queue reaches this length.
	FlushCount int
	// FlushIdle flushes a non-empty scope this long after it last became
	// non-empty, bounding worst-case latency for low-traffic scopes.
	FlushIdle time.Duration
	// MaxAttempts is the total number of persistence attempts per entry
	// before it is dead-lettered.
	MaxAttempts int
	// RetryBackoff is the delay before the first retry; it doubles on each
	// subsequent failure.
	RetryBackoff time.Duration
	// BackoffCeiling caps the retry delay growth.
	BackoffCeiling time.Duration
}

func (c Config) withDefaults() Config {
	if c.FlushCount <= 0 {
		c.FlushCount = DefaultFlushCount
	}
	if c.FlushIdle <= 0 {
		c.FlushIdle = DefaultFlushIdle
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.BackoffCeiling <= 0 {
		c.BackoffCeiling = DefaultBackoffCeiling
	}
	return c
}

// backoff returns the retry delay after the given number of failed attempts:
// RetryBackoff * 2^(attempts-1), capped at BackoffCeiling.
func (c Config) backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	shift := uint(attempts - 1)
	if shift > 30 {
		return c.BackoffCeiling
	}
	d := c.RetryBackoff << shift
	if d <= 0 || d > c.BackoffCeiling {
		return c.BackoffCeiling
	}
	return d
}
