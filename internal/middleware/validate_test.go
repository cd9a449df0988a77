package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	Name   string   `json:"name" validate:"required,notblank,max=10"`
	UserID string   `json:"userId,omitempty" validate:"omitempty,uuid"`
	Scope  []string `json:"scope,omitempty" validate:"omitempty,dive,startswith=/"`
}

type errorBody struct {
	Error struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

func runValidate(t *testing.T, body string) (*httptest.ResponseRecorder, *sampleInput) {
	t.Helper()
	var got *sampleInput
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = InputFromContext[sampleInput](r.Context())
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodPost, "/api/test", strings.NewReader(body))
	rec := httptest.NewRecorder()
	Validate[sampleInput]()(next).ServeHTTP(rec, req)
	return rec, got
}

func TestValidate_Valid(t *testing.T) {
	rec, got := runValidate(t, `{"name":"ci","userId":"2f0e5a8e-7d4a-4d6e-9a8e-0c5b4b7d2a11","scope":["/api/apiKeys.list"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "ci", got.Name)
	assert.Equal(t, []string{"/api/apiKeys.list"}, got.Scope)
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing name", `{}`, "name"},
		{"empty body", ``, "name"},
		{"blank name", `{"name":"   "}`, "name"},
		{"long name", `{"name":"abcdefghijk"}`, "name"},
		{"bad uuid", `{"name":"ci","userId":"nope"}`, "userId"},
		{"bad scope entry", `{"name":"ci","scope":["api/x"]}`, "scope[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, got := runValidate(t, tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, got)

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
			assert.Contains(t, body.Error.Fields, tt.wantField)
		})
	}
}

func TestValidate_MalformedJSON(t *testing.T) {
	rec, got := runValidate(t, `{"name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, got)
	assert.Contains(t, rec.Body.String(), "Invalid JSON body")
}
