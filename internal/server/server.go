package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanonone/tracekit/pkg/engine"
)

// Server exposes an Engine over HTTP.
type Server struct {
	Engine *engine.Engine

	httpServer  *http.Server
	handler     http.Handler
	taskManager *TaskManager
	authToken   string
	logger      *slog.Logger
}

// NewServer wires the routes and middleware. The Engine must already be
// open; Shutdown does not close it.
func NewServer(eng *engine.Engine, httpAddr, authToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Engine:      eng,
		taskManager: NewTaskManager(),
		authToken:   authToken,
		logger:      logger.With("component", "http"),
	}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)

	// Recovery -> Logging -> Auth -> Mux. Recovery is outermost so it also
	// catches panics in the other middleware.
	var handler http.Handler = mux
	handler = s.authMiddleware(handler)
	handler = s.LoggingMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", promhttp.Handler())
	rootMux.Handle("/", handler)

	s.handler = rootMux
	s.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           rootMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and for any
// running maintenance task.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("starting graceful shutdown of HTTP server")
	err := s.httpServer.Shutdown(ctx)
	s.taskManager.Wait()
	return err
}
