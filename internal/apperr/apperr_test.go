package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestError_Status(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"validation", Validation("bad", nil), http.StatusBadRequest},
		{"authentication", Unauthenticated("who"), http.StatusUnauthorized},
		{"authorization", Forbidden("no"), http.StatusForbidden},
		{"not found", NotFound("gone"), http.StatusNotFound},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Status(); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFrom_WrappedError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("delete key: %w", NotFound("API key not found"))

	got := From(wrapped)
	if got.Kind != KindNotFound {
		t.Errorf("Kind = %q, want %q", got.Kind, KindNotFound)
	}
	if !Is(wrapped, KindNotFound) {
		t.Error("Is(wrapped, KindNotFound) should be true")
	}
}

func TestFrom_UnclassifiedBecomesInternal(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	got := From(cause)

	if got.Kind != KindInternal {
		t.Errorf("Kind = %q, want %q", got.Kind, KindInternal)
	}
	if got.Message == cause.Error() {
		t.Error("internal error message must not expose the cause")
	}
	if !errors.Is(got, cause) {
		t.Error("internal error should unwrap to its cause")
	}
}

func TestFrom_Nil(t *testing.T) {
	t.Parallel()

	if From(nil) != nil {
		t.Error("From(nil) should be nil")
	}
}

func TestWrite_Envelope(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	got := Write(rec, Validation("Invalid request", map[string]string{"name": "is required"}))

	if got.Kind != KindValidation {
		t.Errorf("Kind = %q, want %q", got.Kind, KindValidation)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Fields  map[string]string `json:"fields"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "VALIDATION_ERROR" || body.Error.Fields["name"] != "is required" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestWrite_InternalHidesCause(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Write(rec, errors.New("pq: password authentication failed"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("body leaks cause: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "fields") {
		t.Errorf("fields should be omitted when empty: %s", rec.Body.String())
	}
}

func TestRateLimited(t *testing.T) {
	t.Parallel()

	e := RateLimited(30 * time.Second)
	if e.Status() != http.StatusTooManyRequests {
		t.Errorf("Status() = %d, want 429", e.Status())
	}
	if e.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("Code = %q", e.Code)
	}
}
