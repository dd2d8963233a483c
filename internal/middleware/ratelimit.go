package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/confcentral/confcentral/internal/auth"
	"github.com/confcentral/confcentral/internal/cache"
)

// Limiter consumes rate limit tokens.
type Limiter interface {
	CheckKeyRateLimit(ctx context.Context, keyID string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter Limiter
	// PerMinute and Burst bound each API key; anonymous callers share the
	// same limits per client address. Zero PerMinute disables limiting.
	PerMinute int
	Burst     int
}

// RateLimit returns middleware that rate limits per API key, or per client
// address for anonymous callers. Apply after Auth. Limiter failures fail open.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.PerMinute <= 0 || cfg.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				result *cache.RateLimitResult
				err    error
			)
			authCtx := auth.AuthFromContext(r.Context())
			if authCtx != nil {
				result, err = cfg.Limiter.CheckKeyRateLimit(r.Context(), authCtx.KeyID, cfg.PerMinute, cfg.Burst)
			} else {
				result, err = cfg.Limiter.CheckIPRateLimit(r.Context(), clientIP(r), cfg.PerMinute, cfg.Burst)
			}
			if err != nil {
				cfg.Logger.Error("rate limit check failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.PerMinute, result.Remaining, result.ResetAt)

			if !result.Allowed {
				retryAfter := int((result.RetryAfter + time.Second - 1) / time.Second)
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("user_id", auth.UserIDFromContext(r.Context())),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int("retry_after_seconds", retryAfter),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
					"Rate limit exceeded. Retry after "+strconv.Itoa(retryAfter)+" seconds.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// clientIP returns the client address without port. chi's RealIP runs
// earlier in the chain and rewrites RemoteAddr from proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
