package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/equipcare/stockroom-backend/api/responses"
	"github.com/equipcare/stockroom-backend/pkg/config"
	pkgerrors "github.com/equipcare/stockroom-backend/pkg/errors"
	"github.com/equipcare/stockroom-backend/pkg/logger"
	pkgredis "github.com/equipcare/stockroom-backend/pkg/redis"
)

// RateLimit caps mutating requests per actor in a fixed window. Reads pass
// through uncounted; a stock count must never be throttled behind a burst
// of withdrawals.
func RateLimit(cfg config.RateLimitConfig, store pkgredis.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			scope := limiterScope(r)
			allowed, count, err := store.FixedWindowAllow(ctx, scope, cfg.PerActor, cfg.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"scope":          scope,
						"attempts":       count,
						"limit":          cfg.PerActor,
						"window_seconds": int(cfg.Window.Seconds()),
					})
					logg.Warn(logCtx, "ledger.rate_limit.blocked")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// limiterScope counts by authenticated actor; requests that reach the
// limiter without one are grouped by client address instead.
func limiterScope(r *http.Request) string {
	if actor := ActorIDFromContext(r.Context()); actor != "" {
		return "actor:" + actor
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
