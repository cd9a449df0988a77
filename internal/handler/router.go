package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/penshort/teamkeys/internal/handler/dto"
	"github.com/penshort/teamkeys/internal/metrics"
	"github.com/penshort/teamkeys/internal/middleware"
	"github.com/penshort/teamkeys/internal/model"
)

// RouterConfig holds everything the route table needs.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer

	Health  *HealthHandler
	APIKeys *APIKeyHandler

	Auth               middleware.AuthConfig
	RateLimit          middleware.RateLimitConfig
	Pagination         middleware.PaginationConfig
	Security           middleware.SecurityConfig
	CORS               middleware.CORSConfig
	MaxRequestBodySize int64
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Healthz)
		r.Get("/readyz", cfg.Health.Readyz)
	}
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", NewMetricsHandler(cfg.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
		r.Use(middleware.RateLimitIP(cfg.RateLimit))
		r.Use(middleware.Auth(cfg.Auth))
		r.Use(middleware.RateLimitAPI(cfg.RateLimit))
		r.Use(middleware.RequireRole(model.RoleMember))

		r.With(
			middleware.RequireAuthType(model.AuthTypeApp),
			middleware.Validate[dto.CreateAPIKeyRequest](),
		).Post("/apiKeys.create", cfg.APIKeys.Create)

		r.With(
			middleware.Pagination(cfg.Pagination),
			middleware.Validate[dto.ListAPIKeysRequest](),
		).Post("/apiKeys.list", cfg.APIKeys.List)

		r.With(
			middleware.Validate[dto.DeleteAPIKeyRequest](),
		).Post("/apiKeys.delete", cfg.APIKeys.Delete)
	})

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	return r
}
