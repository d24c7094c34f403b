package buffer

import (
	"context"
	"time"

	"github.com/nicholasjhenry/review-room-sub000/internal/journal"
	"github.com/nicholasjhenry/review-room-sub000/pkg/log"
)

// maxReasonLen bounds error reasons carried into logs, journal events and
// dead letters, so a failing backend cannot echo snippet bodies back out
// through the observability surface.
const maxReasonLen = 256

func redactReason(err error) string {
	s := err.Error()
	if len(s) > maxReasonLen {
		return s[:maxReasonLen] + "...(truncated)"
	}
	return s
}

// runFlush is the flush executor. Each entry is persisted individually, not
// as one multi-entry transaction, so a single malformed entry cannot block
// its siblings. Outcomes are partitioned and reported back to the
// coordinator in one message.
func (b *Buffer) runFlush(scopeKey string, entries []*Entry) {
	ctx := context.Background()
	started := time.Now()
	out := flushDoneMsg{scopeKey: scopeKey, taken: len(entries)}
	events := make([]*journal.Event, 0, len(entries)+1)

	for _, e := range entries {
		err := b.persist(ctx, e.Payload)
		now := time.Now()
		if err == nil {
			out.succeeded++
			b.logger.Debug("entry persisted",
				log.Str("scope_key", scopeKey),
				log.Str("buffer_token", e.Token.String()),
				log.Int("attempts", e.Attempts))
			events = append(events, &journal.Event{
				Kind:     journal.KindPersisted,
				ScopeKey: scopeKey,
				Token:    e.Token.String(),
				Attempts: e.Attempts,
				TsMs:     now.UnixMilli(),
			})
			continue
		}

		e.Attempts++
		e.LastError = redactReason(err)
		if e.Attempts >= b.cfg.MaxAttempts {
			out.dead = append(out.dead, DeadLetter{
				Token:     e.Token,
				ScopeKey:  scopeKey,
				Payload:   e.Payload,
				Attempts:  e.Attempts,
				LastError: e.LastError,
				FailedAt:  now,
			})
			b.logger.Error("entry dead-lettered",
				log.Str("scope_key", scopeKey),
				log.Str("buffer_token", e.Token.String()),
				log.Int("attempts", e.Attempts),
				log.Str("reason", e.LastError))
			events = append(events, &journal.Event{
				Kind:     journal.KindDeadLetter,
				ScopeKey: scopeKey,
				Token:    e.Token.String(),
				Attempts: e.Attempts,
				TsMs:     now.UnixMilli(),
				Error:    e.LastError,
			})
		} else {
			out.failed = append(out.failed, e)
			b.logger.Warn("entry persist failed",
				log.Str("scope_key", scopeKey),
				log.Str("buffer_token", e.Token.String()),
				log.Int("attempts", e.Attempts),
				log.Str("reason", e.LastError))
			events = append(events, &journal.Event{
				Kind:     journal.KindRetry,
				ScopeKey: scopeKey,
				Token:    e.Token.String(),
				Attempts: e.Attempts,
				TsMs:     now.UnixMilli(),
				Error:    e.LastError,
			})
		}
	}

	b.logger.Info("flush complete",
		log.Str("scope_key", scopeKey),
		log.Int("taken", out.taken),
		log.Int("succeeded", out.succeeded),
		log.Int("failed", len(out.failed)),
		log.Int("dead", len(out.dead)),
		log.Dur("elapsed", time.Since(started)))
	events = append(events, &journal.Event{
		Kind:     journal.KindFlush,
		ScopeKey: scopeKey,
		TsMs:     time.Now().UnixMilli(),
	})
	b.record(events...)

	b.post(out)
}
