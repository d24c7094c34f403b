package controllers

import (
	"net/http"

	"github.com/nicholasjhenry/review-room-sub000/internal/runtime"
	snippetsvc "github.com/nicholasjhenry/review-room-sub000/internal/services/snippets"
)

// ControllerRegistry manages all HTTP controllers.
//
// It provides a centralized way to register all controller routes
// and manages the lifecycle of individual controllers.
type ControllerRegistry struct {
	general  *GeneralController
	snippets *SnippetsController
	buffer   *BufferController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime, svc *snippetsvc.Service) *ControllerRegistry {
	return &ControllerRegistry{
		general:  NewGeneralController(rt),
		snippets: NewSnippetsController(rt, svc),
		buffer:   NewBufferController(rt, svc),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
//
// This sets up the snippet submission and read endpoints plus the buffer
// introspection surface used by tests and operators.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.snippets.RegisterRoutes(mux)
	r.buffer.RegisterRoutes(mux)
}
