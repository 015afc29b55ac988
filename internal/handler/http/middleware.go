package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"

	"weather-service/internal/handler/http/requestid"
	"weather-service/internal/handler/http/respond"
	"weather-service/internal/handler/http/responsewriter"
	"weather-service/internal/observability/logging"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Logging stores a request-scoped logger in the context and logs each completed request.
func Logging(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logging.WithRequestID(r.Context(), logger)
			ctx := logging.WithLogger(r.Context(), reqLogger)

			rec := responsewriter.Wrap(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			traceID := trace.SpanFromContext(r.Context()).SpanContext().TraceID()
			reqLogger.Debug("request completed",
				slog.String("trace_id", traceID.String()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", rec.Status()),
				slog.Int("bytes", rec.Size()),
				slog.Duration("duration", time.Since(start)))
		})
	}
}

// Recover turns a handler panic into a 500 response and logs the stack.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					slog.String("request_id", requestid.FromContext(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("panic", fmt.Sprint(rec)),
					slog.String("stack", string(debug.Stack())))
				respond.Error(w, http.StatusInternalServerError, "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// GetOnly rejects every method except GET with 405 and an Allow header.
func GetOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respond.MethodNotAllowed(w, http.MethodGet)
			return
		}
		next.ServeHTTP(w, r)
	})
}
