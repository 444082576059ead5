package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/task-orchestrator/internal/api/shared"
	"github.com/phrazzld/task-orchestrator/internal/platform/logger"
)

// Trace returns middleware that assigns every request a trace ID and a
// request-scoped logger carrying it. A well-formed X-Trace-ID header from the
// client is reused; the ID is echoed on the response.
func Trace(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(shared.TraceIDHeader)
			if !shared.ValidTraceID(traceID) {
				traceID = shared.NewTraceID()
			}

			log := base.With(slog.String("trace_id", traceID))
			ctx := shared.WithTraceID(r.Context(), traceID)
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set(shared.TraceIDHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
