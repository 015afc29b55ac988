// Package logging provides structured logging helpers on top of log/slog.
//
// Every component of the weather service takes a *slog.Logger. This package builds
// the process logger from LOG_LEVEL and LOG_FORMAT and moves loggers through contexts.
//
// Example usage:
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
//	    logging.WithRequestID(r.Context(), h.logger).Info("health requested")
//	}
package logging
