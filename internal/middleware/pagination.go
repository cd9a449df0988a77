package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/penshort/teamkeys/internal/apperr"
	"github.com/penshort/teamkeys/internal/model"
)

const pageKey contextKey = "page"

// maxOffset bounds the offset query parameter.
const maxOffset = math.MaxInt32

// PaginationConfig holds the limit defaults.
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// Pagination resolves the offset and limit query parameters into a
// model.Page. Missing values take defaults and limit is clamped to
// MaxLimit. Negative or non-numeric values are rejected.
func Pagination(cfg PaginationConfig) func(http.Handler) http.Handler {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 25
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, fields := resolvePage(r, cfg)
			if len(fields) > 0 {
				apperr.Write(w, apperr.Validation("Invalid pagination parameters", fields))
				return
			}
			ctx := context.WithValue(r.Context(), pageKey, page)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolvePage(r *http.Request, cfg PaginationConfig) (model.Page, map[string]string) {
	page := model.Page{Offset: 0, Limit: cfg.DefaultLimit}
	fields := map[string]string{}
	q := r.URL.Query()

	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil || n < 0:
			fields["offset"] = "must be a non-negative integer"
		case n > maxOffset:
			fields["offset"] = "must be at most " + strconv.Itoa(maxOffset)
		default:
			page.Offset = n
		}
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil || n < 0:
			fields["limit"] = "must be a non-negative integer"
		case n == 0:
			page.Limit = cfg.DefaultLimit
		default:
			page.Limit = min(n, cfg.MaxLimit)
		}
	}

	return page, fields
}

// PageFromContext returns the resolved page. Handlers mounted without the
// Pagination middleware get the zero page.
func PageFromContext(ctx context.Context) model.Page {
	page, _ := ctx.Value(pageKey).(model.Page)
	return page
}
