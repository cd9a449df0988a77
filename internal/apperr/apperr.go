// Package apperr defines the client-facing error taxonomy.
// Handlers render any error through From so internal details never leak.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the client.
type Kind string

// Error kinds.
const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindRateLimited    Kind = "rate_limited"
	KindInternal       Kind = "internal"
)

// Error is a classified error with a stable code and a safe message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Fields holds per-field detail for validation errors.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Validation returns a validation error with optional field detail.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: message, Fields: fields}
}

// Unauthenticated returns an authentication error.
func Unauthenticated(message string) *Error {
	return &Error{Kind: KindAuthentication, Code: "UNAUTHORIZED", Message: message}
}

// Forbidden returns an authorization error.
func Forbidden(message string) *Error {
	return &Error{Kind: KindAuthorization, Code: "FORBIDDEN", Message: message}
}

// NotFound returns a not-found error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: message}
}

// Internal wraps an unexpected error.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "An internal error occurred", Err: err}
}

// From classifies err. Unclassified errors become internal errors.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
