package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/penshort/teamkeys/internal/model"
)

func TestPagination(t *testing.T) {
	cfg := PaginationConfig{DefaultLimit: 25, MaxLimit: 100}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantPage   model.Page
		wantField  string
	}{
		{name: "defaults", query: "", wantStatus: http.StatusOK, wantPage: model.Page{Offset: 0, Limit: 25}},
		{name: "explicit", query: "offset=10&limit=5", wantStatus: http.StatusOK, wantPage: model.Page{Offset: 10, Limit: 5}},
		{name: "limit clamped", query: "limit=1000", wantStatus: http.StatusOK, wantPage: model.Page{Offset: 0, Limit: 100}},
		{name: "zero limit uses default", query: "limit=0", wantStatus: http.StatusOK, wantPage: model.Page{Offset: 0, Limit: 25}},
		{name: "negative offset", query: "offset=-1", wantStatus: http.StatusBadRequest, wantField: "offset"},
		{name: "negative limit", query: "limit=-5", wantStatus: http.StatusBadRequest, wantField: "limit"},
		{name: "non-numeric limit", query: "limit=ten", wantStatus: http.StatusBadRequest, wantField: "limit"},
		{name: "largest offset", query: "offset=2147483647", wantStatus: http.StatusOK, wantPage: model.Page{Offset: 2147483647, Limit: 25}},
		{name: "offset too large", query: "offset=2147483648", wantStatus: http.StatusBadRequest, wantField: "offset"},
		{name: "offset overflows int", query: "offset=9223372036854775807", wantStatus: http.StatusBadRequest, wantField: "offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.Page
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = PageFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/apiKeys.list?"+tt.query, nil)
			rec := httptest.NewRecorder()
			Pagination(cfg)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK && got != tt.wantPage {
				t.Errorf("page = %+v, want %+v", got, tt.wantPage)
			}
			if tt.wantField != "" && !strings.Contains(rec.Body.String(), `"`+tt.wantField+`"`) {
				t.Errorf("body should name field %q: %s", tt.wantField, rec.Body.String())
			}
		})
	}
}
