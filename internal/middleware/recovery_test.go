package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("store exploded")
	})

	rec := httptest.NewRecorder()
	Recoverer(logger)(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/apiKeys.list", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
	assert.NotContains(t, rec.Body.String(), "store exploded")
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "store exploded")
}
