// Package snippetsvc provides snippet submission and inspection operations
// over the runtime. Submissions go through the deferred persistence buffer;
// reads go straight to the snippet store.
package snippetsvc

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nicholasjhenry/review-room-sub000/internal/buffer"
	"github.com/nicholasjhenry/review-room-sub000/internal/journal"
	"github.com/nicholasjhenry/review-room-sub000/internal/runtime"
	"github.com/nicholasjhenry/review-room-sub000/internal/snippet"
	logpkg "github.com/nicholasjhenry/review-room-sub000/pkg/log"
)

// Service coordinates the scope resolver, buffer and snippet store.
type Service struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
}

// New creates a snippets service using the runtime's logger.
func New(rt *runtime.Runtime) *Service {
	return &Service{rt: rt, logger: rt.Logger().WithComponent("snippets")}
}

// SubmitRequest carries one user submission. Scope is the raw ownership
// identifier; it is resolved and normalized here.
type SubmitRequest struct {
	Scope    string `json:"scope"`
	Title    string `json:"title"`
	Language string `json:"language"`
	Body     string `json:"body"`
}

// SubmitResult is returned once the submission is queued, before it is
// durable.
type SubmitResult struct {
	SnippetID        string    `json:"snippetId"`
	ScopeKey         string    `json:"scopeKey"`
	Token            string    `json:"bufferToken"`
	Position         int       `json:"position"`
	EstimatedFlushAt time.Time `json:"estimatedFlushAt,omitzero"`
}

// Submit validates and enqueues one snippet. The returned result is a
// queuing acknowledgement, not a delivery confirmation.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	key, err := s.rt.Resolver().Resolve(req.Scope)
	if err != nil {
		return SubmitResult{}, err
	}
	sn := &snippet.Snippet{
		ID:          uuid.NewString(),
		Scope:       key,
		Title:       req.Title,
		Language:    req.Language,
		Body:        req.Body,
		CreatedAtMs: time.Now().UnixMilli(),
	}
	if err := sn.Validate(s.rt.Config().SnippetMaxBytes); err != nil {
		return SubmitResult{}, err
	}
	res, err := s.rt.Buffer().Enqueue(ctx, key, sn)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{
		SnippetID:        sn.ID,
		ScopeKey:         key,
		Token:            res.Token.String(),
		Position:         res.Position,
		EstimatedFlushAt: res.EstimatedFlushAt,
	}, nil
}

// FlushScope forces an immediate flush of one scope's queue.
func (s *Service) FlushScope(ctx context.Context, rawScope string) error {
	key, err := s.rt.Resolver().Resolve(rawScope)
	if err != nil {
		return err
	}
	return s.rt.Buffer().FlushNow(ctx, key)
}

// Debug returns the buffer's read-only state snapshot.
func (s *Service) Debug(ctx context.Context) (buffer.DebugState, error) {
	return s.rt.Buffer().Debug(ctx)
}

// DeadLetters returns dead letters, optionally narrowed by a CEL filter
// expression over scope_key, token, attempts, error and failed_at_ms.
func (s *Service) DeadLetters(ctx context.Context, filterExpr string) ([]buffer.DeadLetter, error) {
	f, err := newCELFilter(filterExpr)
	if err != nil {
		return nil, err
	}
	all, err := s.rt.Buffer().DeadLetters(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]buffer.DeadLetter, 0, len(all))
	for _, dl := range all {
		if f.Eval(dl) {
			out = append(out, dl)
		}
	}
	return out, nil
}

// Get reads one persisted snippet.
func (s *Service) Get(ctx context.Context, rawScope, id string) (*snippet.Snippet, error) {
	key, err := s.rt.Resolver().Resolve(rawScope)
	if err != nil {
		return nil, err
	}
	return s.rt.Store().Get(ctx, key, id)
}

// List reads persisted snippets in a scope, newest first.
func (s *Service) List(ctx context.Context, rawScope string, limit int) ([]*snippet.Snippet, error) {
	key, err := s.rt.Resolver().Resolve(rawScope)
	if err != nil {
		return nil, err
	}
	return s.rt.Store().List(ctx, key, limit)
}

// Events returns recent journaled buffer events, newest first.
func (s *Service) Events(ctx context.Context, limit int) ([]*journal.Event, error) {
	return s.rt.Journal().Recent(limit)
}
