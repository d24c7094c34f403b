package controllers

import (
	"errors"
	"net/http"

	"github.com/nicholasjhenry/review-room-sub000/internal/buffer"
	"github.com/nicholasjhenry/review-room-sub000/internal/runtime"
	snippetsvc "github.com/nicholasjhenry/review-room-sub000/internal/services/snippets"
)

// BufferController exposes the buffer introspection surface: queue state,
// dead letters and the durable event journal. Read-only.
type BufferController struct {
	rt  *runtime.Runtime
	svc *snippetsvc.Service
}

// NewBufferController creates a new buffer controller.
func NewBufferController(rt *runtime.Runtime, svc *snippetsvc.Service) *BufferController {
	return &BufferController{rt: rt, svc: svc}
}

// RegisterRoutes registers buffer routes with the given mux.
func (c *BufferController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/buffer/state", c.handleState)
	mux.HandleFunc("/v1/buffer/dead-letters", c.handleDeadLetters)
	mux.HandleFunc("/v1/buffer/events", c.handleEvents)
}

// handleState returns a read-only snapshot of all scope queues, pending
// retries and dead letters.
func (c *BufferController) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	st, err := c.svc.Debug(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, st)
}

// handleDeadLetters returns dead letters, optionally narrowed by a CEL
// expression in the filter query parameter, e.g.
// ?filter=attempts >= 3 && scope_key == "alice".
func (c *BufferController) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	dls, err := c.svc.DeadLetters(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		if errors.Is(err, buffer.ErrClosed) {
			writeServiceError(w, err)
			return
		}
		// Anything else here is a filter compile error, a caller mistake.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]any{"deadLetters": dls})
}

// handleEvents returns recent journaled buffer events, newest first.
func (c *BufferController) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	events, err := c.svc.Events(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"events": events})
}
