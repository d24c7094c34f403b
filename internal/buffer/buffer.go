package buffer

import (
	"context"
	"errors"
	"time"

	"github.com/nicholasjhenry/review-room-sub000/internal/journal"
	"github.com/nicholasjhenry/review-room-sub000/internal/snippet"
	"github.com/nicholasjhenry/review-room-sub000/pkg/id"
	"github.com/nicholasjhenry/review-room-sub000/pkg/log"
)

// ErrClosed is returned once Close has begun: the buffer no longer accepts
// entries.
var ErrClosed = errors.New("buffer: closed")

// ErrScopeRequired is returned by Enqueue for an empty scope key. Scope
// resolution happens before the buffer; an empty key here is a caller bug.
var ErrScopeRequired = errors.New("buffer: scope key required")

// journalBacklog bounds queued journal events; journalBatchMax bounds how
// many are committed in one batch.
const (
	journalBacklog  = 256
	journalBatchMax = 64
)

// PersistFunc durably writes one snippet. A nil return means the write is
// durable; any error is treated as transient and retried up to the
// configured attempt budget.
type PersistFunc func(ctx context.Context, sn *snippet.Snippet) error

// Journal receives one durable event per buffer action. Optional.
type Journal interface {
	Append(ctx context.Context, events ...*journal.Event) error
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithLogger sets the logger. Defaults to a silent logger.
func WithLogger(l log.Logger) Option {
	return func(b *Buffer) { b.logger = l.WithComponent("buffer") }
}

// WithJournal enables durable event journaling.
func WithJournal(j Journal) Option {
	return func(b *Buffer) { b.journal = j }
}

// Buffer stages snippet submissions in per-scope FIFO queues and flushes
// them through a PersistFunc. All state below the message channel is owned
// exclusively by the coordinator goroutine.
type Buffer struct {
	cfg     Config
	persist PersistFunc
	logger  log.Logger
	journal Journal
	ids     *id.Generator

	msgs chan any
	done chan struct{}

	// journalCh feeds a dedicated writer goroutine so journal commits never
	// stall the coordinator. Nil when no journal is configured.
	journalCh   chan *journal.Event
	journalDone chan struct{}

	// coordinator-owned; never touched outside run().
	scopes       map[string]*scopeQueue
	retries      map[id.Token]*pendingRetry
	deadLetters  []DeadLetter
	inFlight     int
	closing      bool
	closeReplies []chan struct{}
}

type scopeQueue struct {
	entries []*Entry
	// timer is the idle-flush timer, armed on the empty to non-empty
	// transition and cancelled on any flush of the scope. epoch invalidates
	// callbacks from timers that were already stopped.
	timer         *time.Timer
	epoch         uint64
	deadline      time.Time
	flushing      bool
	manualPending bool
}

type pendingRetry struct {
	entry *Entry
	timer *time.Timer
}

// Coordinator messages.
type (
	enqueueMsg struct {
		scopeKey string
		sn       *snippet.Snippet
		reply    chan enqueueReply
	}
	enqueueReply struct {
		res EnqueueResult
		err error
	}
	flushMsg struct {
		scopeKey string
		reply    chan error
	}
	debugMsg struct {
		reply chan DebugState
	}
	timerMsg struct {
		scopeKey string
		epoch    uint64
	}
	flushDoneMsg struct {
		scopeKey  string
		taken     int
		succeeded int
		failed    []*Entry
		dead      []DeadLetter
	}
	retryMsg struct {
		entry *Entry
	}
	closeMsg struct {
		reply chan struct{}
	}
)

// New creates a started Buffer. persist must be non-nil.
func New(cfg Config, persist PersistFunc, opts ...Option) (*Buffer, error) {
	if persist == nil {
		return nil, errors.New("buffer: persist func is required")
	}
	b := &Buffer{
		cfg:     cfg.withDefaults(),
		persist: persist,
		logger:  log.NewLogger(log.WithOutput(log.NullOutput{})),
		ids:     id.NewGenerator(),
		msgs:    make(chan any, 64),
		done:    make(chan struct{}),
		scopes:  make(map[string]*scopeQueue),
		retries: make(map[id.Token]*pendingRetry),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.journal != nil {
		b.journalCh = make(chan *journal.Event, journalBacklog)
		b.journalDone = make(chan struct{})
		go b.runJournal()
	}
	go b.run()
	return b, nil
}

// Enqueue appends a snippet to its scope queue and returns as soon as the
// entry is queued. The result is not a delivery confirmation.
func (b *Buffer) Enqueue(ctx context.Context, scopeKey string, sn *snippet.Snippet) (EnqueueResult, error) {
	if scopeKey == "" {
		return EnqueueResult{}, ErrScopeRequired
	}
	reply := make(chan enqueueReply, 1)
	select {
	case b.msgs <- enqueueMsg{scopeKey: scopeKey, sn: sn, reply: reply}:
	case <-b.done:
		return EnqueueResult{}, ErrClosed
	case <-ctx.Done():
		return EnqueueResult{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.res, r.err
	case <-b.done:
		// The coordinator may have handled the message just before exiting.
		select {
		case r := <-reply:
			return r.res, r.err
		default:
			return EnqueueResult{}, ErrClosed
		}
	case <-ctx.Done():
		return EnqueueResult{}, ctx.Err()
	}
}

// FlushNow schedules an immediate flush of one scope's queue. It returns
// once the flush is scheduled, not when persistence completes. No-op on an
// empty queue.
func (b *Buffer) FlushNow(ctx context.Context, scopeKey string) error {
	reply := make(chan error, 1)
	select {
	case b.msgs <- flushMsg{scopeKey: scopeKey, reply: reply}:
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-b.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Debug returns a read-only snapshot of queues, pending retries and dead
// letters. It never mutates buffer state.
func (b *Buffer) Debug(ctx context.Context) (DebugState, error) {
	reply := make(chan DebugState, 1)
	select {
	case b.msgs <- debugMsg{reply: reply}:
	case <-b.done:
		return DebugState{}, ErrClosed
	case <-ctx.Done():
		return DebugState{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-b.done:
		select {
		case st := <-reply:
			return st, nil
		default:
			return DebugState{}, ErrClosed
		}
	case <-ctx.Done():
		return DebugState{}, ctx.Err()
	}
}

// DeadLetters returns the append-only dead letter record.
func (b *Buffer) DeadLetters(ctx context.Context) ([]DeadLetter, error) {
	st, err := b.Debug(ctx)
	if err != nil {
		return nil, err
	}
	return st.DeadLetters, nil
}

// Close drains the buffer: every non-empty scope is flushed and in-flight
// work is awaited before Close returns. New enqueues fail with ErrClosed.
func (b *Buffer) Close(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case b.msgs <- closeMsg{reply: reply}:
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers an internal message unless the coordinator already exited.
func (b *Buffer) post(m any) {
	select {
	case b.msgs <- m:
	case <-b.done:
	}
}

func (b *Buffer) run() {
	for {
		m := <-b.msgs
		switch m := m.(type) {
		case enqueueMsg:
			b.handleEnqueue(m)
		case flushMsg:
			b.handleFlushNow(m)
		case debugMsg:
			m.reply <- b.snapshotState()
		case timerMsg:
			b.handleTimer(m)
		case flushDoneMsg:
			b.handleFlushDone(m)
		case retryMsg:
			b.handleRetry(m)
		case closeMsg:
			b.handleClose(m)
		}
		if b.closing && b.inFlight == 0 && len(b.retries) == 0 && len(b.scopes) == 0 {
			if b.journalCh != nil {
				close(b.journalCh)
				<-b.journalDone
			}
			close(b.done)
			for _, reply := range b.closeReplies {
				close(reply)
			}
			return
		}
	}
}

func (b *Buffer) handleEnqueue(m enqueueMsg) {
	if b.closing {
		m.reply <- enqueueReply{err: ErrClosed}
		return
	}
	q := b.scopes[m.scopeKey]
	if q == nil {
		q = &scopeQueue{}
		b.scopes[m.scopeKey] = q
	}
	now := time.Now()
	e := &Entry{
		Token:      b.ids.Next(),
		ScopeKey:   m.scopeKey,
		Payload:    m.sn,
		EnqueuedAt: now,
	}
	q.entries = append(q.entries, e)
	position := len(q.entries)

	b.logger.Debug("entry enqueued",
		log.Str("scope_key", m.scopeKey),
		log.Str("buffer_token", e.Token.String()),
		log.Int("position", position))
	b.record(&journal.Event{
		Kind:     journal.KindEnqueue,
		ScopeKey: m.scopeKey,
		Token:    e.Token.String(),
		TsMs:     now.UnixMilli(),
	})

	var estimate time.Time
	switch {
	case position >= b.cfg.FlushCount:
		estimate = now
		if !q.flushing {
			b.startFlush(m.scopeKey, q)
		}
	default:
		if q.timer == nil && !q.flushing {
			b.armIdleTimer(m.scopeKey, q)
		}
		estimate = q.deadline
		if estimate.IsZero() {
			// Mid-flush with no armed timer; the remainder flushes as soon
			// as the in-flight snapshot lands.
			estimate = now
		}
	}
	m.reply <- enqueueReply{res: EnqueueResult{
		Token:            e.Token,
		Position:         position,
		EstimatedFlushAt: estimate,
	}}
}

func (b *Buffer) handleFlushNow(m flushMsg) {
	q := b.scopes[m.scopeKey]
	if q == nil || len(q.entries) == 0 {
		m.reply <- nil
		return
	}
	if q.flushing {
		// A snapshot is mid-flight; entries behind it flush when it lands.
		q.manualPending = true
		m.reply <- nil
		return
	}
	b.startFlush(m.scopeKey, q)
	m.reply <- nil
}

func (b *Buffer) handleTimer(m timerMsg) {
	q := b.scopes[m.scopeKey]
	if q == nil || q.epoch != m.epoch || q.flushing || len(q.entries) == 0 {
		return
	}
	b.startFlush(m.scopeKey, q)
}

func (b *Buffer) handleFlushDone(m flushDoneMsg) {
	q := b.scopes[m.scopeKey]
	q.entries = q.entries[m.taken:]
	q.flushing = false
	b.inFlight--

	for _, e := range m.failed {
		b.scheduleRetry(e)
	}
	b.deadLetters = append(b.deadLetters, m.dead...)
	b.afterChange(m.scopeKey, q)
}

func (b *Buffer) handleRetry(m retryMsg) {
	delete(b.retries, m.entry.Token)
	key := m.entry.ScopeKey
	q := b.scopes[key]
	if q == nil {
		q = &scopeQueue{}
		b.scopes[key] = q
	}
	// Retried entries rejoin at the current tail, never their original
	// position, so a poison entry cannot block its scope's head.
	q.entries = append(q.entries, m.entry)
	b.afterChange(key, q)
}

func (b *Buffer) handleClose(m closeMsg) {
	b.closeReplies = append(b.closeReplies, m.reply)
	if b.closing {
		return
	}
	b.closing = true
	b.logger.Info("draining buffer",
		log.Int("scopes", len(b.scopes)),
		log.Int("pending_retries", len(b.retries)))

	for token, r := range b.retries {
		if !r.timer.Stop() {
			// Already fired; its retryMsg arrives on its own.
			continue
		}
		delete(b.retries, token)
		key := r.entry.ScopeKey
		q := b.scopes[key]
		if q == nil {
			q = &scopeQueue{}
			b.scopes[key] = q
		}
		q.entries = append(q.entries, r.entry)
	}
	for key, q := range b.scopes {
		b.stopIdleTimer(q)
		if !q.flushing && len(q.entries) > 0 {
			b.startFlush(key, q)
		}
		if !q.flushing && len(q.entries) == 0 {
			delete(b.scopes, key)
		}
	}
}

// afterChange re-evaluates a scope after its queue changed outside of a
// plain enqueue: trigger a flush, re-arm the idle timer, or drop the empty
// queue.
func (b *Buffer) afterChange(scopeKey string, q *scopeQueue) {
	if len(q.entries) == 0 {
		if !q.flushing {
			delete(b.scopes, scopeKey)
		}
		return
	}
	if q.flushing {
		return
	}
	if b.closing || q.manualPending || len(q.entries) >= b.cfg.FlushCount {
		b.startFlush(scopeKey, q)
		return
	}
	if q.timer == nil {
		b.armIdleTimer(scopeKey, q)
	}
}

func (b *Buffer) armIdleTimer(scopeKey string, q *scopeQueue) {
	q.epoch++
	epoch := q.epoch
	q.deadline = time.Now().Add(b.cfg.FlushIdle)
	q.timer = time.AfterFunc(b.cfg.FlushIdle, func() {
		b.post(timerMsg{scopeKey: scopeKey, epoch: epoch})
	})
}

func (b *Buffer) stopIdleTimer(q *scopeQueue) {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.epoch++
	q.deadline = time.Time{}
}

// startFlush snapshots the scope's current queue and hands it to an
// executor goroutine. The snapshot is subtracted from the queue head when
// the executor reports back; entries enqueued mid-flush stay behind it.
func (b *Buffer) startFlush(scopeKey string, q *scopeQueue) {
	b.stopIdleTimer(q)
	q.flushing = true
	q.manualPending = false
	b.inFlight++
	snapshot := append([]*Entry(nil), q.entries...)
	go b.runFlush(scopeKey, snapshot)
}

func (b *Buffer) scheduleRetry(e *Entry) {
	if b.closing {
		// One drain flush is all a scope gets on shutdown; queued entries
		// are documented as non-durable across restarts.
		b.logger.Warn("dropping entry on shutdown",
			log.Str("scope_key", e.ScopeKey),
			log.Str("buffer_token", e.Token.String()),
			log.Int("attempts", e.Attempts))
		return
	}
	delay := b.cfg.backoff(e.Attempts)
	entry := e
	timer := time.AfterFunc(delay, func() {
		b.post(retryMsg{entry: entry})
	})
	b.retries[e.Token] = &pendingRetry{entry: e, timer: timer}
}

func (b *Buffer) snapshotState() DebugState {
	st := DebugState{
		Scopes:         make(map[string]ScopeState, len(b.scopes)),
		PendingRetries: len(b.retries),
	}
	for key, q := range b.scopes {
		entries := make([]EntrySnapshot, len(q.entries))
		for i, e := range q.entries {
			entries[i] = EntrySnapshot{
				Token:      e.Token,
				SnippetID:  e.Payload.ID,
				EnqueuedAt: e.EnqueuedAt,
			}
		}
		st.Scopes[key] = ScopeState{
			Length:      len(q.entries),
			Flushing:    q.flushing,
			NextFlushAt: q.deadline,
			Entries:     entries,
		}
	}
	st.DeadLetters = append([]DeadLetter(nil), b.deadLetters...)
	return st
}

func (b *Buffer) record(events ...*journal.Event) {
	if b.journal == nil {
		return
	}
	for _, e := range events {
		select {
		case b.journalCh <- e:
		default:
			b.logger.Warn("journal backlog full, event dropped",
				log.Str("kind", e.Kind),
				log.Str("scope_key", e.ScopeKey))
		}
	}
}

// runJournal drains queued events and commits them in batches. It exits
// when the channel closes during shutdown, after writing what remains.
func (b *Buffer) runJournal() {
	defer close(b.journalDone)
	for {
		e, ok := <-b.journalCh
		if !ok {
			return
		}
		events := []*journal.Event{e}
	batch:
		for len(events) < journalBatchMax {
			select {
			case e, ok := <-b.journalCh:
				if !ok {
					break batch
				}
				events = append(events, e)
			default:
				break batch
			}
		}
		if err := b.journal.Append(context.Background(), events...); err != nil {
			b.logger.Warn("journal append failed", log.Err(err))
		}
	}
}
