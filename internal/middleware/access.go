package middleware

import (
	"net/http"
	"slices"

	"github.com/penshort/teamkeys/internal/apperr"
	"github.com/penshort/teamkeys/internal/auth"
	"github.com/penshort/teamkeys/internal/model"
)

// RequireRole returns middleware that rejects users below the given role.
// Must be applied after Auth middleware.
func RequireRole(min model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserFromContext(r.Context())
			if user == nil {
				apperr.Write(w, apperr.Unauthenticated("Authentication required"))
				return
			}
			if !user.Role.AtLeast(min) {
				apperr.Write(w, apperr.Forbidden("Authorization error"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthType returns middleware that only admits the listed credential types.
func RequireAuthType(types ...model.AuthType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				apperr.Write(w, apperr.Unauthenticated("Authentication required"))
				return
			}
			if !slices.Contains(types, authCtx.Type) {
				apperr.Write(w, apperr.Forbidden("Authorization error"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
