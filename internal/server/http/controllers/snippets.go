package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/nicholasjhenry/review-room-sub000/internal/runtime"
	snippetsvc "github.com/nicholasjhenry/review-room-sub000/internal/services/snippets"
)

// SnippetsController handles snippet submission and read endpoints.
//
// Submission returns 202 Accepted: the snippet is queued in the persistence
// buffer, not yet durable. Reads serve persisted snippets only.
type SnippetsController struct {
	rt  *runtime.Runtime
	svc *snippetsvc.Service
}

// NewSnippetsController creates a new snippets controller.
func NewSnippetsController(rt *runtime.Runtime, svc *snippetsvc.Service) *SnippetsController {
	return &SnippetsController{rt: rt, svc: svc}
}

// RegisterRoutes registers snippet routes with the given mux.
func (c *SnippetsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/snippets/submit", c.handleSubmit)
	mux.HandleFunc("/v1/snippets/flush", c.handleFlush)
	mux.HandleFunc("/v1/snippets/get", c.handleGet)
	mux.HandleFunc("/v1/snippets/list", c.handleList)
}

// handleSubmit queues one snippet for deferred persistence.
//
// Returns 202 Accepted with the buffer token, queue position and estimated
// flush time. The response is a queuing acknowledgement, not a durability
// guarantee.
func (c *SnippetsController) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req snippetsvc.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := c.svc.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(res)
}

type flushReq struct {
	Scope string `json:"scope"`
}

// handleFlush forces an immediate flush of one scope's queue.
func (c *SnippetsController) handleFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req flushReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := c.svc.FlushScope(r.Context(), req.Scope); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleGet returns one persisted snippet by scope and id.
func (c *SnippetsController) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	sn, err := c.svc.Get(r.Context(), r.URL.Query().Get("scope"), r.URL.Query().Get("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, sn)
}

// handleList returns persisted snippets in a scope, newest first.
func (c *SnippetsController) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	q := r.URL.Query()
	list, err := c.svc.List(r.Context(), q.Get("scope"), parseLimit(q.Get("limit")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"snippets": list})
}
