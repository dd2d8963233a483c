package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/confcentral/confcentral/internal/auth"
	"github.com/confcentral/confcentral/internal/model"
)

// DefaultMinAuthDuration pads authentication so that failures and successes
// take the same time.
const DefaultMinAuthDuration = 200 * time.Millisecond

// KeyStore looks up API keys.
type KeyStore interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// AuthCache caches resolved callers by a hash of the presented key.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, authCtx *model.AuthContext) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Keys   KeyStore
	Cache  AuthCache // optional
	// Optional lets requests without a key through as anonymous callers.
	// A key that is present but wrong is still rejected.
	Optional bool
	// MinDuration pads each attempt that presents a key. Zero disables it.
	MinDuration time.Duration
}

// Auth returns a middleware that resolves the caller from the
// Authorization or X-API-Key header.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				if cfg.Optional {
					next.ServeHTTP(w, r)
					return
				}
				logAuthFailure(cfg.Logger, r, "missing_key")
				writeAuthError(w)
				return
			}

			if cfg.MinDuration > 0 {
				start := time.Now()
				defer func() {
					if elapsed := time.Since(start); elapsed < cfg.MinDuration {
						time.Sleep(cfg.MinDuration - elapsed)
					}
				}()
			}

			authCtx, reason := authenticate(r.Context(), cfg, key)
			if authCtx == nil {
				logAuthFailure(cfg.Logger, r, reason)
				writeAuthError(w)
				return
			}

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate resolves key to a caller. On failure it returns nil and the
// reason to log.
func authenticate(ctx context.Context, cfg AuthConfig, key string) (*model.AuthContext, string) {
	parsed, err := auth.ParseAPIKey(key)
	if err != nil {
		return nil, "invalid_format"
	}

	cacheKey := auth.CacheKey(key)
	if cfg.Cache != nil {
		if cached, _ := cfg.Cache.GetAuthContext(ctx, cacheKey); cached != nil {
			cfg.Logger.Debug("authentication successful",
				slog.String("key_prefix", cached.KeyPrefix),
				slog.String("user_id", cached.UserID),
				slog.Bool("cache_hit", true),
				slog.String("request_id", GetRequestID(ctx)),
			)
			return cached, ""
		}
	}

	candidates, err := cfg.Keys.GetAPIKeysByPrefix(ctx, parsed.Prefix)
	if err != nil {
		cfg.Logger.Error("key lookup failed",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(ctx)),
		)
		return nil, "lookup_error"
	}

	// Several keys may share a prefix.
	var matched *model.APIKey
	for _, k := range candidates {
		if ok, err := auth.VerifyKey(key, k.KeyHash); err == nil && ok {
			matched = k
			break
		}
	}
	if matched == nil || matched.IsRevoked() {
		return nil, "invalid_key"
	}

	authCtx := &model.AuthContext{
		KeyID:     matched.ID,
		KeyPrefix: matched.KeyPrefix,
		UserID:    matched.UserID,
		Email:     matched.UserEmail,
		Scopes:    matched.Scopes,
	}

	if cfg.Cache != nil {
		_ = cfg.Cache.SetAuthContext(ctx, cacheKey, authCtx)
	}

	go func(id string) {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := cfg.Keys.UpdateAPIKeyLastUsed(bg, id); err != nil {
			cfg.Logger.Debug("failed to update key last use", "key_id", id, "error", err)
		}
	}(matched.ID)

	cfg.Logger.Info("authentication successful",
		slog.String("key_prefix", authCtx.KeyPrefix),
		slog.String("user_id", authCtx.UserID),
		slog.Bool("cache_hit", false),
		slog.String("request_id", GetRequestID(ctx)),
	)
	return authCtx, ""
}

// extractAPIKey supports "Authorization: Bearer <key>" and "X-API-Key: <key>".
func extractAPIKey(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError uses one message for every failure to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing API key")
}
