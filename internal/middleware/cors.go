package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	// AllowedOrigins lists exact origins or "*.example.com" subdomain patterns.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	// AllowCredentials lets browsers send the session cookie.
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

// DefaultCORSConfig returns CORS defaults for the RPC endpoints.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"X-API-Key",
			"X-Request-ID",
			"Accept",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// Disallowed origins get no CORS headers and their preflights get 403.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")

	exact := lo.Associate(cfg.AllowedOrigins, func(o string) (string, bool) {
		return strings.ToLower(o), true
	})
	suffixes := lo.FilterMap(cfg.AllowedOrigins, func(o string, _ int) (string, bool) {
		if !strings.HasPrefix(o, "*.") {
			return "", false
		}
		return strings.ToLower(strings.TrimPrefix(o, "*")), true
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !originAllowed(origin, exact, suffixes) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed matches exact origins, then subdomain patterns. A pattern
// "*.example.com" matches "https://api.example.com" but not
// "https://notexample.com".
func originAllowed(origin string, exact map[string]bool, suffixes []string) bool {
	origin = strings.ToLower(origin)
	if exact[origin] {
		return true
	}
	for _, suffix := range suffixes {
		if !strings.HasSuffix(origin, suffix) {
			continue
		}
		host := strings.TrimSuffix(origin, suffix)
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		if host != "" && !strings.Contains(host, "/") {
			return true
		}
	}
	return false
}
