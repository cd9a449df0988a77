package middleware

import (
	"errors"
	"net/http"

	"github.com/penshort/teamkeys/internal/apperr"
)

// SecurityConfig holds configuration for security headers.
type SecurityConfig struct {
	// IsDevelopment disables HSTS.
	IsDevelopment bool
}

// Security returns a middleware that sets defensive response headers for a
// JSON API: no sniffing, no framing, no caching and HSTS outside development.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()")
			h.Set("Cache-Control", "no-store")
			if !cfg.IsDevelopment {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			}
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

// errBodyTooLarge is reported when a request declares an oversized body.
var errBodyTooLarge = errors.New("request body too large")

// MaxBodySize returns a middleware that limits request body size. Bodies
// that declare a larger Content-Length are rejected up front; others are
// cut off by http.MaxBytesReader and fail JSON decoding. A non-positive
// limit disables the check.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > maxBytes {
				e := apperr.Validation("Request body too large", nil)
				e.Code = "PAYLOAD_TOO_LARGE"
				e.Err = errBodyTooLarge
				w.Header().Set("Connection", "close")
				writeStatus(w, http.StatusRequestEntityTooLarge, e)
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeStatus renders e with a status other than the one its kind implies.
func writeStatus(w http.ResponseWriter, status int, e *apperr.Error) {
	apperr.Write(&statusOverride{ResponseWriter: w, status: status}, e)
}

type statusOverride struct {
	http.ResponseWriter
	status int
}

func (s *statusOverride) WriteHeader(int) {
	s.ResponseWriter.WriteHeader(s.status)
}
