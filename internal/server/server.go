// Package server runs the HTTP listener and drains registered components
// when the process is asked to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc stops a component within the deadline carried by ctx.
type ShutdownFunc func(ctx context.Context) error

type component struct {
	name string
	stop ShutdownFunc
}

// Server wraps http.Server with ordered component shutdown.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu         sync.Mutex
	components []component
}

// New creates a Server listening on the given port.
func New(handler http.Handler, port int, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// OnShutdown registers a component to stop after the HTTP server drains.
// Components stop in reverse registration order.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components = append(s.components, component{name: name, stop: fn})
}

// Run serves until SIGINT or SIGTERM arrives, then shuts down.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve serves until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
		return s.Shutdown()
	}
}

// Shutdown stops the HTTP server and then every registered component.
// The first component error is returned after all have been attempted.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.httpServer.SetKeepAlivesEnabled(false)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
	}
	s.logger.Info("HTTP server stopped", slog.Duration("timeout", s.shutdownTimeout))

	s.mu.Lock()
	components := append([]component(nil), s.components...)
	s.mu.Unlock()

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.stop(ctx); err != nil {
			s.logger.Error("component shutdown error",
				slog.String("name", c.name),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		s.logger.Info("component stopped", slog.String("name", c.name))
	}

	if len(errs) > 0 {
		return errs[0]
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// WaitContext runs a blocking wait and returns early when ctx expires.
func WaitContext(ctx context.Context, wait func()) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
