// Package middleware provides the HTTP middleware chain: request IDs,
// access logging, panic recovery, security headers, authentication, rate
// limiting, pagination and request validation.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	// RequestIDKey is the context key for request ID.
	RequestIDKey contextKey = "request_id"
	// TraceIDKey is the context key for trace ID.
	TraceIDKey contextKey = "trace_id"
)

// Headers carrying correlation IDs.
const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"
)

// maxRequestIDLength bounds client-supplied IDs before they reach logs and
// audit rows.
const maxRequestIDLength = 128

// RequestID injects a request ID into each request, reusing a sane
// X-Request-ID header or generating a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		if traceID := r.Header.Get(TraceIDHeader); traceID != "" {
			ctx = context.WithValue(ctx, TraceIDKey, traceID)
			w.Header().Set(TraceIDHeader, traceID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetTraceID retrieves the trace ID from context.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}
