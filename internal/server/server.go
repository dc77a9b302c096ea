// Package server exposes the gateway's HTTP surface: task submission and
// polling behind the credential gate, plus the API key lifecycle operations.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/slok/bua/internal/apikey"
	"github.com/slok/bua/internal/app/task"
	"github.com/slok/bua/internal/log"
)

// Config is the configuration for the HTTP server.
type Config struct {
	Addr  string
	Tasks *task.Service

	// Validator gates every protected route.
	Validator apikey.Validator

	// Keys enables the API key lifecycle routes. Nil (static shared-secret
	// deployments) leaves them unregistered.
	Keys *apikey.Service

	// OpenKeyGeneration leaves POST /api-keys/generate unauthenticated, for
	// bootstrap. When false the route is gated like everything else.
	OpenKeyGeneration bool

	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.Tasks == nil {
		return fmt.Errorf("task service is required")
	}
	if c.Validator == nil {
		return fmt.Errorf("validator is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "server.HTTP"})
	return nil
}

// Server is the gateway HTTP server.
type Server struct {
	cfg    Config
	srv    *http.Server
	logger log.Logger
}

// New creates a new HTTP server with the given configuration.
func New(cfg Config) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.logger.Infof("HTTP server listening on %s", s.srv.Addr)

	go func() {
		<-ctx.Done()
		s.logger.Infof("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Errorf("HTTP server shutdown error: %v", err)
		}
	}()

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler (useful for testing).
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.Handle("POST /tasks", s.authenticated(s.handleCreateTask))
	mux.Handle("GET /tasks", s.authenticated(s.handleListTasks))
	mux.Handle("GET /tasks/{id}", s.authenticated(s.handleGetTask))

	if s.cfg.Keys == nil {
		return
	}

	if s.cfg.OpenKeyGeneration {
		mux.HandleFunc("POST /api-keys/generate", s.handleGenerateKey)
	} else {
		mux.Handle("POST /api-keys/generate", s.authenticated(s.handleGenerateKey))
	}
	// Rotate and revoke judge the presented credential themselves: an
	// invalid one is a 400 from the operation, not a 403 from the gate.
	mux.HandleFunc("POST /api-keys/rotate", s.handleRotateKey)
	mux.HandleFunc("POST /api-keys/revoke", s.handleRevokeKey)
	mux.Handle("GET /api-keys/active", s.authenticated(s.handleListActiveKeys))
}
