package ratelimit

import (
	"log/slog"
	"net/http"

	"adoro/pkg/platform/httputil"
	"adoro/pkg/requestcontext"
)

// Middleware applies the limiter per client IP. Limiter failures fail open:
// a broken Redis must not take registrations down with it.
func Middleware(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := requestcontext.ClientIP(ctx)
			if key == "" {
				key = r.RemoteAddr
			}

			allowed, err := limiter.Allow(ctx, key)
			if err != nil {
				logger.WarnContext(ctx, "rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limited",
					"error_description": "too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
