package buffer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/nicholasjhenry/review-room-sub000/internal/journal"
	"github.com/nicholasjhenry/review-room-sub000/internal/snippet"
)

// persistRecorder is a fake persistence port. fail, when set, decides the
// outcome per call; otherwise every call succeeds.
type persistRecorder struct {
	mu    sync.Mutex
	calls []string
	fail  func(call int, sn *snippet.Snippet) error
}

func (p *persistRecorder) persist(_ context.Context, sn *snippet.Snippet) error {
	p.mu.Lock()
	p.calls = append(p.calls, sn.ID)
	n := len(p.calls)
	fail := p.fail
	p.mu.Unlock()
	if fail != nil {
		return fail(n, sn)
	}
	return nil
}

func (p *persistRecorder) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *persistRecorder) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func newTestBuffer(t *testing.T, cfg Config, p *persistRecorder) *Buffer {
	t.Helper()
	b, err := New(cfg, p.persist)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.Close(ctx)
	})
	return b
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func sn(id string) *snippet.Snippet {
	return &snippet.Snippet{ID: id, Scope: "alice", Body: "x"}
}

func TestSizeTriggerFlushesBoth(t *testing.T) {
	p := &persistRecorder{}
	b := newTestBuffer(t, Config{FlushCount: 2, FlushIdle: 10 * time.Second}, p)
	ctx := context.Background()

	r1, err := b.Enqueue(ctx, "alice", sn("a"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	r2, err := b.Enqueue(ctx, "alice", sn("b"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if r1.Position != 1 || r2.Position != 2 {
		t.Fatalf("positions = %d, %d", r1.Position, r2.Position)
	}
	if r1.Token == r2.Token {
		t.Fatalf("tokens not distinct: %s", r1.Token)
	}

	waitFor(t, time.Second, func() bool { return p.count() == 2 })

	waitFor(t, time.Second, func() bool {
		st, err := b.Debug(ctx)
		return err == nil && len(st.Scopes) == 0
	})
}

func TestIdleTriggerFlushesAfterDeadline(t *testing.T) {
	p := &persistRecorder{}
	b := newTestBuffer(t, Config{FlushCount: 99, FlushIdle: 25 * time.Millisecond}, p)
	ctx := context.Background()

	if _, err := b.Enqueue(ctx, "alice", sn("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if got := p.count(); got != 0 {
		t.Fatalf("persisted before idle deadline: %d calls", got)
	}

	waitFor(t, time.Second, func() bool { return p.count() == 1 })
	waitFor(t, time.Second, func() bool {
		st, err := b.Debug(ctx)
		return err == nil && len(st.Scopes) == 0
	})
}

func TestFirstAttemptOrderMatchesEnqueueOrder(t *testing.T) {
	p := &persistRecorder{}
	b := newTestBuffer(t, Config{FlushCount: 5, FlushIdle: 10 * time.Second}, p)
	ctx := context.Background()

	want := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("s%d", i)
		want = append(want, id)
		if _, err := b.Enqueue(ctx, "alice", sn(id)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	waitFor(t, time.Second, func() bool { return p.count() == 5 })
	if got := p.ids(); !reflect.DeepEqual(got, want) {
		t.Fatalf("flush order %v, want %v", got, want)
	}
}

func TestAlwaysFailingEntryIsDeadLettered(t *testing.T) {
	p := &persistRecorder{fail: func(int, *snippet.Snippet) error {
		return errors.New("disk on fire")
	}}
	b := newTestBuffer(t, Config{
		FlushCount:   1,
		FlushIdle:    10 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: 5 * time.Millisecond,
	}, p)
	ctx := context.Background()

	if _, err := b.Enqueue(ctx, "alice", sn("poison")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		dls, err := b.DeadLetters(ctx)
		return err == nil && len(dls) == 1
	})

	if got := p.count(); got != 3 {
		t.Fatalf("attempted %d times, want exactly 3", got)
	}

	st, err := b.Debug(ctx)
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	dl := st.DeadLetters[0]
	if dl.Attempts != 3 {
		t.Fatalf("dead letter attempts = %d", dl.Attempts)
	}
	if dl.LastError == "" {
		t.Fatal("dead letter missing last error")
	}
	if len(st.Scopes) != 0 {
		t.Fatalf("dead-lettered entry still queued: %+v", st.Scopes)
	}
	if st.PendingRetries != 0 {
		t.Fatalf("pending retries = %d", st.PendingRetries)
	}
}

func TestScopesFlushIndependently(t *testing.T) {
	p := &persistRecorder{}
	b := newTestBuffer(t, Config{FlushCount: 99, FlushIdle: 40 * time.Millisecond}, p)
	ctx := context.Background()

	if _, err := b.Enqueue(ctx, "alice", sn("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	bobSn := &snippet.Snippet{ID: "b", Scope: "bob", Body: "y"}
	if _, err := b.Enqueue(ctx, "bob", bobSn); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Manually flushing alice must not disturb bob's queue or timer.
	if err := b.FlushNow(ctx, "alice"); err != nil {
		t.Fatalf("flush now: %v", err)
	}
	waitFor(t, time.Second, func() bool { return p.count() == 1 })

	st, err := b.Debug(ctx)
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	bobState, ok := st.Scopes["bob"]
	if !ok || bobState.Length != 1 {
		t.Fatalf("bob's queue disturbed: %+v", st.Scopes)
	}
	if bobState.NextFlushAt.IsZero() {
		t.Fatal("bob's idle timer lost")
	}

	// Bob's own idle timer still fires.
	waitFor(t, time.Second, func() bool { return p.count() == 2 })
	if got := p.ids(); got[0] != "a" || got[1] != "b" {
		t.Fatalf("flush order %v", got)
	}
}

func TestDebugIsReadOnly(t *testing.T) {
	p := &persistRecorder{}
	b := newTestBuffer(t, Config{FlushCount: 99, FlushIdle: 10 * time.Second}, p)
	ctx := context.Background()

	if _, err := b.Enqueue(ctx, "alice", sn("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	first, err := b.Debug(ctx)
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	second, err := b.Debug(ctx)
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("debug mutated state:\n%+v\n%+v", first, second)
	}
}

func TestEnqueueRejectsEmptyScope(t *testing.T) {
	p := &persistRecorder{}
	b := newTestBuffer(t, Config{}, p)
	ctx := context.Background()

	if _, err := b.Enqueue(ctx, "", sn("a")); !errors.Is(err, ErrScopeRequired) {
		t.Fatalf("expected ErrScopeRequired, got %v", err)
	}

	st, err := b.Debug(ctx)
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	if len(st.Scopes) != 0 {
		t.Fatalf("rejected enqueue created a queue: %+v", st.Scopes)
	}
}

func TestDebugListsQueuedEntries(t *testing.T) {
	p := &persistRecorder{}
	b := newTestBuffer(t, Config{FlushCount: 99, FlushIdle: 10 * time.Second}, p)
	ctx := context.Background()

	r1, err := b.Enqueue(ctx, "alice", sn("a"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	r2, err := b.Enqueue(ctx, "alice", sn("b"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	st, err := b.Debug(ctx)
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	entries := st.Scopes["alice"].Entries
	if len(entries) != 2 {
		t.Fatalf("expected 2 entry snapshots, got %+v", entries)
	}
	if entries[0].Token != r1.Token || entries[1].Token != r2.Token {
		t.Fatalf("snapshot tokens out of order: %+v", entries)
	}
	if entries[0].SnippetID != "a" || entries[1].SnippetID != "b" {
		t.Fatalf("snapshot ids mismatch: %+v", entries)
	}
	if entries[0].EnqueuedAt.IsZero() {
		t.Fatal("snapshot missing enqueue time")
	}
}

func TestEnqueueMidFlushEstimatesNow(t *testing.T) {
	gate := make(chan struct{})
	p := &persistRecorder{fail: func(int, *snippet.Snippet) error {
		<-gate
		return nil
	}}
	b := newTestBuffer(t, Config{FlushCount: 99, FlushIdle: 10 * time.Second}, p)
	t.Cleanup(func() { close(gate) })
	ctx := context.Background()

	if _, err := b.Enqueue(ctx, "alice", sn("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := b.FlushNow(ctx, "alice"); err != nil {
		t.Fatalf("flush now: %v", err)
	}
	waitFor(t, time.Second, func() bool { return p.count() == 1 })

	// The flush is parked inside persist; this entry lands behind the
	// snapshot with no idle timer armed.
	r, err := b.Enqueue(ctx, "alice", sn("b"))
	if err != nil {
		t.Fatalf("enqueue mid-flush: %v", err)
	}
	if r.EstimatedFlushAt.IsZero() {
		t.Fatal("mid-flush enqueue returned zero estimate")
	}
}

func TestFlushNowEmptyScopeIsNoop(t *testing.T) {
	p := &persistRecorder{}
	b := newTestBuffer(t, Config{}, p)

	if err := b.FlushNow(context.Background(), "nobody"); err != nil {
		t.Fatalf("flush now on empty scope: %v", err)
	}
	if got := p.count(); got != 0 {
		t.Fatalf("persist called %d times", got)
	}
}

func TestTransientFailureRetriesToTail(t *testing.T) {
	p := &persistRecorder{}
	p.fail = func(_ int, s *snippet.Snippet) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		// "bad" fails on its first attempt only.
		if s.ID == "bad" && countOf(p.calls, "bad") == 1 {
			return errors.New("transient")
		}
		return nil
	}
	b := newTestBuffer(t, Config{
		FlushCount:   2,
		FlushIdle:    20 * time.Millisecond,
		MaxAttempts:  3,
		RetryBackoff: 5 * time.Millisecond,
	}, p)
	ctx := context.Background()

	if _, err := b.Enqueue(ctx, "alice", sn("bad")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := b.Enqueue(ctx, "alice", sn("good")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// good persists once, bad twice (fail then success), nothing dead.
	waitFor(t, 2*time.Second, func() bool { return p.count() == 3 })
	waitFor(t, time.Second, func() bool {
		st, err := b.Debug(ctx)
		return err == nil && len(st.Scopes) == 0 && st.PendingRetries == 0
	})

	dls, err := b.DeadLetters(ctx)
	if err != nil {
		t.Fatalf("dead letters: %v", err)
	}
	if len(dls) != 0 {
		t.Fatalf("unexpected dead letters: %+v", dls)
	}
	if got := countOf(p.ids(), "good"); got != 1 {
		t.Fatalf("good persisted %d times", got)
	}
	if got := countOf(p.ids(), "bad"); got != 2 {
		t.Fatalf("bad persisted %d times", got)
	}
}

func countOf(ids []string, id string) int {
	n := 0
	for _, v := range ids {
		if v == id {
			n++
		}
	}
	return n
}

func TestCloseDrainsQueuedEntries(t *testing.T) {
	p := &persistRecorder{}
	b, err := New(Config{FlushCount: 99, FlushIdle: 10 * time.Second}, p.persist)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := b.Enqueue(ctx, "alice", sn(fmt.Sprintf("s%d", i))); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	if err := b.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := p.count(); got != 3 {
		t.Fatalf("drained %d entries, want 3", got)
	}

	if _, err := b.Enqueue(ctx, "alice", sn("late")); !errors.Is(err, ErrClosed) {
		t.Fatalf("enqueue after close: %v", err)
	}
	if err := b.Close(ctx); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestCloseFoldsPendingRetryIntoDrain(t *testing.T) {
	p := &persistRecorder{fail: func(call int, _ *snippet.Snippet) error {
		if call == 1 {
			return errors.New("transient")
		}
		return nil
	}}
	b, err := New(Config{
		FlushCount:   1,
		FlushIdle:    10 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: 10 * time.Second,
	}, p.persist)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	ctx := context.Background()

	if _, err := b.Enqueue(ctx, "alice", sn("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// First attempt fails; the retry is parked behind a long backoff.
	waitFor(t, time.Second, func() bool {
		st, err := b.Debug(ctx)
		return err == nil && st.PendingRetries == 1
	})

	if err := b.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := p.count(); got != 2 {
		t.Fatalf("persist called %d times, want 2", got)
	}
}

// journalRecorder is a fake journal. gate, when set, parks Append until the
// channel is closed.
type journalRecorder struct {
	mu     sync.Mutex
	events []*journal.Event
	gate   chan struct{}
}

func (j *journalRecorder) Append(_ context.Context, events ...*journal.Event) error {
	if j.gate != nil {
		<-j.gate
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, events...)
	return nil
}

func (j *journalRecorder) kinds() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.events))
	for i, e := range j.events {
		out[i] = e.Kind
	}
	return out
}

func TestEnqueueNotBlockedBySlowJournal(t *testing.T) {
	gate := make(chan struct{})
	j := &journalRecorder{gate: gate}
	p := &persistRecorder{}
	b, err := New(Config{FlushCount: 99, FlushIdle: 10 * time.Second}, p.persist, WithJournal(j))
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}

	// The journal writer is parked; enqueues must still return promptly.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 5; i++ {
		if _, err := b.Enqueue(ctx, "alice", sn(fmt.Sprintf("s%d", i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	close(gate)
	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Close waits for the journal writer, so every event is committed.
	kinds := j.kinds()
	if got := countOf(kinds, journal.KindEnqueue); got != 5 {
		t.Fatalf("journaled %d enqueue events, want 5: %v", got, kinds)
	}
	if got := countOf(kinds, journal.KindPersisted); got != 5 {
		t.Fatalf("journaled %d persisted events, want 5: %v", got, kinds)
	}
	if got := countOf(kinds, journal.KindFlush); got != 1 {
		t.Fatalf("journaled %d flush events, want 1: %v", got, kinds)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	cfg := Config{RetryBackoff: 500 * time.Millisecond, BackoffCeiling: 30 * time.Second}.withDefaults()

	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
		{7, 30 * time.Second},
		{40, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := cfg.backoff(tc.attempts); got != tc.want {
			t.Fatalf("backoff(%d) = %v, want %v", tc.attempts, got, tc.want)
		}
	}
}
