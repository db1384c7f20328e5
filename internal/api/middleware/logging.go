package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger returns a middleware that logs HTTP requests. Server errors are
// logged at error level.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusRecorder(w)

			// Auth runs inside the route group, so the admin is read from the
			// request it sees, not from r.
			var admin string
			next.ServeHTTP(wrapped, r.WithContext(withAdminSink(r.Context(), &admin)))

			event := log.Info()
			if wrapped.statusCode >= http.StatusInternalServerError {
				event = log.Error()
			}

			spanCtx := trace.SpanContextFromContext(r.Context())
			traceID := ""
			spanID := ""
			if spanCtx.IsValid() {
				traceID = spanCtx.TraceID().String()
				spanID = spanCtx.SpanID().String()
			}

			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("trace_id", traceID).
				Str("span_id", spanID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", wrapped.statusCode).
				Int64("bytes", wrapped.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Str("admin", admin).
				Msg("request completed")
		})
	}
}

type adminSinkKey struct{}

func withAdminSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, adminSinkKey{}, sink)
}

// recordAdmin reports the authenticated admin to an enclosing Logger.
func recordAdmin(ctx context.Context, username string) {
	if sink, ok := ctx.Value(adminSinkKey{}).(*string); ok {
		*sink = username
	}
}
