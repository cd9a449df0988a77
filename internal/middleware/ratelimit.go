package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/penshort/teamkeys/internal/apperr"
	"github.com/penshort/teamkeys/internal/auth"
	"github.com/penshort/teamkeys/internal/cache"
)

// RateLimiter checks token buckets.
type RateLimiter interface {
	CheckAPIRateLimit(ctx context.Context, principal string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter

	// Per authenticated principal (API key or user).
	APIEnabled bool
	APIRPM     int
	APIBurst   int

	// Per client IP, applied before authentication.
	IPEnabled bool
	IPRPS     int
	IPBurst   int
}

// RateLimitAPI returns middleware that rate limits requests per principal.
// Must be applied after Auth middleware.
func RateLimitAPI(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if !cfg.APIEnabled || authCtx == nil {
				next.ServeHTTP(w, r)
				return
			}

			principal := authCtx.Principal()
			result, err := cfg.Limiter.CheckAPIRateLimit(r.Context(), principal, cfg.APIRPM, cfg.APIBurst)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("principal", principal),
				)
			}
			if result == nil {
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.APIRPM, result.Remaining, result.ResetAt)

			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("principal", principal),
					slog.String("type", "api"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP returns middleware that rate limits requests per client IP.
// It protects the authentication path from credential guessing.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.IPEnabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.IPRPS, cfg.IPBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed",
					slog.String("error", err.Error()),
				)
			}
			if result == nil || result.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			cfg.Logger.Warn("rate limit exceeded",
				slog.String("type", "ip"),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
				slog.String("request_id", GetRequestID(r.Context())),
			)
			writeRateLimitError(w, result.RetryAfter)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	apperr.Write(w, apperr.RateLimited(retryAfter))
}

// ClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers for proxied requests.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
