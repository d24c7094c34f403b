package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/nicholasjhenry/review-room-sub000/internal/storage/pebble"
)

// Event kinds.
const (
	KindEnqueue    = "enqueue"
	KindPersisted  = "persisted"
	KindRetry      = "retry"
	KindDeadLetter = "dead_letter"
	KindFlush      = "flush"
)

// Event is one journaled buffer action.
type Event struct {
	Seq      uint64 `json:"seq"`
	Kind     string `json:"kind"`
	ScopeKey string `json:"scopeKey"`
	Token    string `json:"token,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	TsMs     int64  `json:"tsMs"`
	Error    string `json:"error,omitempty"`
}

// Journal provides append-only event recording over Pebble.
type Journal struct {
	db *pebblestore.DB

	mu      sync.Mutex
	lastSeq uint64
}

// Open initializes a Journal and loads the last sequence from metadata (if any).
func Open(db *pebblestore.DB) (*Journal, error) {
	j := &Journal{db: db}
	meta, err := db.Get(metaKey)
	if err == nil && len(meta) >= 8 {
		j.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return j, nil
}

// Append writes the provided events as a single atomic batch. Sequence
// numbers are assigned in order and stamped onto the events.
func (j *Journal) Append(ctx context.Context, events ...*Event) error {
	if len(events) == 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	b := j.db.NewBatch()
	defer b.Close()

	for _, ev := range events {
		j.lastSeq++
		ev.Seq = j.lastSeq
		body, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("journal: encode event: %w", err)
		}
		if err := b.Set(KeyEntry(ev.Seq), encodeRecord(body), nil); err != nil {
			return err
		}
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], j.lastSeq)
	if err := b.Set(metaKey, meta[:], nil); err != nil {
		return err
	}
	return j.db.CommitBatch(ctx, b)
}

// Recent returns up to limit events, newest first. limit <= 0 defaults to 100.
// Records that fail checksum validation are skipped.
func (j *Journal) Recent(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}
	lo, hi := pebblestore.PrefixRange(entryPrefix)
	iter, err := j.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]*Event, 0, limit)
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		body, ok := decodeRecord(iter.Value())
		if !ok {
			continue
		}
		var ev Event
		if err := json.Unmarshal(body, &ev); err != nil {
			continue
		}
		out = append(out, &ev)
	}
	return out, iter.Error()
}
