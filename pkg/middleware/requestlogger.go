package middleware

import (
	"log/slog"
	"net/http"

	"github.com/benjhiman/stockledger/pkg/logger"
)

// RequestLogger returns middleware that builds a request-scoped logger enriched
// with correlation_id, actor, trace_id, and span_id, then stores it in
// context via logger.NewContext. Downstream handlers retrieve it with
// logger.FromContext(ctx).
//
// This middleware should be mounted AFTER RequestLogging (which sets
// correlation_id).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// The X-Actor header identifies the principal behind a stock
			// mutation (warehouse staff name, upstream service, batch job).
			if actor := r.Header.Get("X-Actor"); actor != "" {
				ctx = logger.WithActor(ctx, actor)
			}

			// Build enriched logger with all available context fields
			// (correlation_id, actor, trace_id, span_id).
			enriched := logger.WithContext(ctx, base)

			// Store the enriched logger in context for downstream handlers.
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
