package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/penshort/teamkeys/internal/apperr"
	"github.com/penshort/teamkeys/internal/auth"
	"github.com/penshort/teamkeys/internal/cache"
	"github.com/penshort/teamkeys/internal/metrics"
	"github.com/penshort/teamkeys/internal/model"
)

const (
	// defaultMinAuthDuration is the minimum time spent on a failed
	// authentication so timing does not reveal why it failed.
	defaultMinAuthDuration = 200 * time.Millisecond
	// defaultSessionCookie is the cookie carrying a session token.
	defaultSessionCookie = "accessToken"
	// touchTimeout bounds the asynchronous last-active update.
	touchTimeout = 5 * time.Second
)

// UserLoader loads the user behind a credential.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// KeyLoader looks up API keys by their visible prefix and records use.
type KeyLoader interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
}

// AuthCache stores verified API keys between requests.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*cache.CachedKey, error)
	SetAuthContext(ctx context.Context, cacheKey string, entry *cache.CachedKey) error
}

// TokenVerifier verifies app and session tokens and returns the user ID.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Users   UserLoader
	Keys    KeyLoader
	Cache   AuthCache // optional
	Tokens  TokenVerifier
	Metrics metrics.Recorder // optional

	// SessionCookie is the cookie name holding a session token.
	SessionCookie string
	// MinDuration pads failed attempts. Zero uses the default, negative disables.
	MinDuration time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

var errAuthFailed = errors.New("authentication failed")

// credential is the raw secret found on a request.
type credential struct {
	authType model.AuthType
	value    string
}

// Auth returns a middleware that authenticates API requests with an API key,
// an app token or a session cookie, and injects the auth context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = defaultSessionCookie
	}
	if cfg.MinDuration == 0 {
		cfg.MinDuration = defaultMinAuthDuration
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			logger := cfg.Logger.With(
				slog.String("ip", r.RemoteAddr),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			fail := func(authType model.AuthType, reason string, err *apperr.Error) {
				logger.Warn("authentication failed",
					slog.String("auth_type", string(authType)),
					slog.String("reason", reason),
				)
				cfg.Metrics.IncAuthResult(string(authType), metrics.ResultFailure)
				if cfg.MinDuration > 0 {
					if elapsed := time.Since(startTime); elapsed < cfg.MinDuration {
						time.Sleep(cfg.MinDuration - elapsed)
					}
				}
				apperr.Write(w, err)
			}

			cred, ok := extractCredential(r, cfg.SessionCookie)
			if !ok {
				fail("none", "missing_credential", apperr.Unauthenticated("Authentication required"))
				return
			}

			var (
				authCtx *model.AuthContext
				reason  string
				err     error
			)
			switch cred.authType {
			case model.AuthTypeAPI:
				authCtx, reason, err = authenticateKey(r.Context(), cfg, logger, cred.value)
			default:
				authCtx, reason, err = authenticateToken(r.Context(), cfg, cred)
			}
			if err != nil {
				fail(cred.authType, reason, apperr.Unauthenticated("Invalid or missing credentials"))
				return
			}

			if authCtx.User.IsSuspended() {
				fail(cred.authType, "user_suspended", apperr.Unauthenticated("Invalid or missing credentials"))
				return
			}

			if authCtx.Type == model.AuthTypeAPI {
				key := model.APIKey{Scope: authCtx.Scope}
				if !key.CanAccess(r.URL.Path) {
					logger.Warn("api key scope denied",
						slog.String("key_id", authCtx.KeyID),
					)
					cfg.Metrics.IncAuthResult(string(cred.authType), metrics.ResultFailure)
					apperr.Write(w, apperr.Forbidden("API key scope does not allow this endpoint"))
					return
				}
			}

			cfg.Metrics.IncAuthResult(string(cred.authType), metrics.ResultSuccess)
			logger.Debug("authentication successful",
				slog.String("auth_type", string(authCtx.Type)),
				slog.String("user_id", authCtx.UserID()),
				slog.String("key_id", authCtx.KeyID),
			)

			annotateRequest(r.Context(), authCtx.UserID(), string(authCtx.Type))
			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractCredential finds the request credential. A bearer token shaped
// like an API key is an API key, any other bearer token is an app token,
// and the session cookie is consulted last.
func extractCredential(r *http.Request, cookieName string) (credential, bool) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token != "" {
			if strings.HasPrefix(token, "tk_") {
				return credential{authType: model.AuthTypeAPI, value: token}, true
			}
			return credential{authType: model.AuthTypeApp, value: token}, true
		}
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		return credential{authType: model.AuthTypeAPI, value: key}, true
	}

	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return credential{authType: model.AuthTypeSession, value: c.Value}, true
	}

	return credential{}, false
}

func authenticateToken(ctx context.Context, cfg AuthConfig, cred credential) (*model.AuthContext, string, error) {
	if cfg.Tokens == nil || !auth.LooksLikeToken(cred.value) {
		return nil, "invalid_format", errAuthFailed
	}

	userID, err := cfg.Tokens.Verify(cred.value)
	if err != nil {
		return nil, "invalid_token", err
	}

	user, err := cfg.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, "unknown_user", err
	}

	return &model.AuthContext{Type: cred.authType, User: user}, "", nil
}

func authenticateKey(ctx context.Context, cfg AuthConfig, logger *slog.Logger, key string) (*model.AuthContext, string, error) {
	parsed, err := auth.ParseAPIKey(key)
	if err != nil {
		return nil, "invalid_format", err
	}

	now := cfg.Now()
	cacheKey := auth.QuickHash(key)

	var entry *cache.CachedKey
	if cfg.Cache != nil {
		entry, err = cfg.Cache.GetAuthContext(ctx, cacheKey)
		if err != nil {
			logger.Warn("auth cache read failed", slog.String("error", err.Error()))
		}
	}

	cacheHit := entry != nil
	if !cacheHit {
		matched, reason, err := verifyKey(ctx, cfg, logger, parsed.Prefix, key)
		if err != nil {
			return nil, reason, err
		}
		entry = &cache.CachedKey{
			KeyID:     matched.ID,
			KeyPrefix: matched.KeyPrefix,
			UserID:    matched.UserID,
			Scope:     matched.Scope,
			ExpiresAt: matched.ExpiresAt,
		}
	}

	if entry.ExpiresAt != nil && !now.Before(*entry.ExpiresAt) {
		return nil, "key_expired", errAuthFailed
	}

	user, err := cfg.Users.GetUserByID(ctx, entry.UserID)
	if err != nil {
		return nil, "unknown_user", err
	}

	if !cacheHit && cfg.Cache != nil {
		if err := cfg.Cache.SetAuthContext(ctx, cacheKey, entry); err != nil {
			logger.Warn("auth cache write failed", slog.String("error", err.Error()))
		}
	}

	keyID := entry.KeyID
	go func() {
		touchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), touchTimeout)
		defer cancel()
		if err := cfg.Keys.TouchAPIKey(touchCtx, keyID, now); err != nil {
			logger.Warn("failed to update key last active time",
				slog.String("key_id", keyID),
				slog.String("error", err.Error()),
			)
		}
	}()

	return &model.AuthContext{
		Type:      model.AuthTypeAPI,
		User:      user,
		KeyID:     entry.KeyID,
		KeyPrefix: entry.KeyPrefix,
		Scope:     entry.Scope,
	}, "", nil
}

// verifyKey checks the key against every candidate sharing its prefix.
func verifyKey(ctx context.Context, cfg AuthConfig, logger *slog.Logger, prefix, key string) (*model.APIKey, string, error) {
	keys, err := cfg.Keys.GetAPIKeysByPrefix(ctx, prefix)
	if err != nil {
		logger.Error("database error during auth", slog.String("error", err.Error()))
		return nil, "lookup_failed", err
	}

	for _, k := range keys {
		ok, err := auth.VerifySecret(key, k.KeyHash)
		if err != nil {
			continue
		}
		if ok {
			return k, "", nil
		}
	}
	return nil, "invalid_key", errAuthFailed
}
