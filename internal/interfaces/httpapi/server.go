package httpapi

import (
	"log/slog"
	"net/http"
	"time"
)

// RateLimitConfig sets the sliding-window request ceilings for the router.
// Search routes trigger on-demand provider work, so they get a stricter bucket.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

func NewRouter(
	handler *Handler,
	logger *slog.Logger,
	corsAllowedOrigins []string,
	rateLimit RateLimitConfig,
) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	var searchLimiter *ClientRateLimiter
	if rateLimit.Max > 0 && rateLimit.Window > 0 {
		searchMax := rateLimit.Max / 4
		if searchMax < 1 {
			searchMax = 1
		}
		searchLimiter = NewClientRateLimiter(searchMax, rateLimit.Window)
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler)
	registerServingRoutes(mux, handler)
	registerSearchRoutes(mux, handler, searchLimiter)

	var limiter *ClientRateLimiter
	if rateLimit.Max > 0 && rateLimit.Window > 0 {
		limiter = NewClientRateLimiter(rateLimit.Max, rateLimit.Window)
	}

	return RequestTracing(RequestLogging(logger, CORS(corsAllowedOrigins, RateLimit(limiter, recoverPanic(logger, mux)))))
}

func recoverPanic(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
