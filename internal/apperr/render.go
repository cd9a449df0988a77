package apperr

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// RateLimited returns a rate limit error.
func RateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Kind:    KindRateLimited,
		Code:    "RATE_LIMIT_EXCEEDED",
		Message: "Rate limit exceeded. Retry after " + strconv.Itoa(int(retryAfter.Seconds())) + " seconds.",
	}
}

type responseBody struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Write renders err as a JSON error envelope and returns the classified
// error so callers can log internal failures.
func Write(w http.ResponseWriter, err error) *Error {
	e := From(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status())
	_ = json.NewEncoder(w).Encode(responseBody{Error: responseError{
		Code:    e.Code,
		Message: e.Message,
		Fields:  e.Fields,
	}})
	return e
}
