package buffer

import (
	"time"

	"github.com/nicholasjhenry/review-room-sub000/internal/snippet"
	"github.com/nicholasjhenry/review-room-sub000/pkg/id"
)

// Entry is one queued submission. Payload is immutable after enqueue;
// Attempts increases only when a flush of this entry fails.
type Entry struct {
	Token      id.Token
	ScopeKey   string
	Payload    *snippet.Snippet
	EnqueuedAt time.Time
	Attempts   int
	LastError  string
}

// DeadLetter records an entry that permanently failed persistence after
// exhausting its retry budget. Dead letters are append-only and never
// auto-requeued.
type DeadLetter struct {
	Token     id.Token         `json:"token"`
	ScopeKey  string           `json:"scopeKey"`
	Payload   *snippet.Snippet `json:"payload"`
	Attempts  int              `json:"attempts"`
	LastError string           `json:"lastError"`
	FailedAt  time.Time        `json:"failedAt"`
}

// EnqueueResult is returned as soon as an entry is queued. It is not a
// delivery confirmation: persistence happens later, asynchronously.
type EnqueueResult struct {
	Token            id.Token
	Position         int
	EstimatedFlushAt time.Time
}

// EntrySnapshot is the introspection view of one queued entry. It carries
// only fields fixed at enqueue time; the flush executor owns Attempts and
// LastError while a snapshot is in flight.
type EntrySnapshot struct {
	Token      id.Token  `json:"token"`
	SnippetID  string    `json:"snippetId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// ScopeState describes one scope queue for introspection.
type ScopeState struct {
	Length      int             `json:"length"`
	Flushing    bool            `json:"flushing"`
	NextFlushAt time.Time       `json:"nextFlushAt,omitzero"`
	Entries     []EntrySnapshot `json:"entries"`
}

// DebugState is a read-only snapshot of the whole buffer.
type DebugState struct {
	Scopes         map[string]ScopeState `json:"scopes"`
	PendingRetries int                   `json:"pendingRetries"`
	DeadLetters    []DeadLetter          `json:"deadLetters"`
}
