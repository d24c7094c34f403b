package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nicholasjhenry/review-room-sub000/internal/buffer"
	"github.com/nicholasjhenry/review-room-sub000/internal/scope"
	"github.com/nicholasjhenry/review-room-sub000/internal/snippet"
)

// Helper functions for common HTTP responses

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError maps service-layer errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scope.ErrInvalidScope):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, snippet.ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, snippet.ErrBodyRequired), errors.Is(err, snippet.ErrIDRequired),
		errors.Is(err, snippet.ErrScopeRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, snippet.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, buffer.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseLimit parses a limit string and returns a valid limit value.
//
// Returns 0 for empty strings or invalid values.
func parseLimit(limitStr string) int {
	if limitStr == "" {
		return 0
	}
	if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
		return limit
	}
	return 0
}
