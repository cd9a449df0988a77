// Package handler provides the HTTP handlers and the route table.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/penshort/teamkeys/internal/apperr"
)

// NotFound handles unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	apperr.Write(w, apperr.NotFound("Resource not found"))
}

// MethodNotAllowed handles known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
		"error": map[string]string{"code": "METHOD_NOT_ALLOWED", "message": "Method not allowed"},
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
