package handler

import (
	"context"
	"net/http"
	"time"
)

const readinessTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a HealthHandler. Nil dependencies are reported
// as not configured.
func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{checks: map[string]HealthChecker{
		"postgres": db,
		"redis":    cache,
	}}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is the liveness probe. It never touches dependencies.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is the readiness probe. It pings every dependency and reports
// 503 if any of them fails. Error details are not exposed.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK

	for name, checker := range h.checks {
		switch {
		case checker == nil:
			resp.Checks[name] = "not configured"
		case checker.Ping(ctx) != nil:
			resp.Checks[name] = "unavailable"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		default:
			resp.Checks[name] = "ok"
		}
	}

	writeJSON(w, status, resp)
}
