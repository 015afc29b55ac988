package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultShutdownTimeout bounds graceful shutdown of the monitoring server.
const DefaultShutdownTimeout = 5 * time.Second

// Server runs the monitoring surface until its context is cancelled.
//
// Example:
//
//	srv := NewServer(":8080", handler, accepting, logger)
//	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
//	    logger.Error("monitoring server failed", slog.Any("error", err))
//	}
type Server struct {
	addr            string
	handler         http.Handler
	accepting       *atomic.Bool
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// NewServer creates a server for handler. accepting is flipped to false when
// shutdown begins so readiness fails while in-flight requests drain; it may be nil.
func NewServer(addr string, handler http.Handler, accepting *atomic.Bool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:            addr,
		handler:         handler,
		accepting:       accepting,
		logger:          logger,
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		// /health may run up to the orchestrator ceiling
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("monitoring server starting", slog.String("addr", ln.Addr().String()))
		errChan <- srv.Serve(ln)
	}()
	if s.accepting != nil {
		s.accepting.Store(true)
	}

	select {
	case <-ctx.Done():
		if s.accepting != nil {
			s.accepting.Store(false)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Info("monitoring server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("monitoring server shutdown failed", slog.Any("error", err))
			return err
		}
		s.logger.Info("monitoring server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if s.accepting != nil {
			s.accepting.Store(false)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("monitoring server failed", slog.Any("error", err))
		}
		return err
	}
}
