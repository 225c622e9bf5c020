// Package server exposes the agentgate HTTP surface: the JSON-RPC endpoint
// with SSE streaming, the well-known agent card, health, approvals, and
// Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/agentgate/internal/approval"
	"github.com/flemzord/agentgate/internal/executor"
	"github.com/flemzord/agentgate/internal/task"
	"github.com/flemzord/agentgate/internal/tool"
)

// Config holds the HTTP server settings.
type Config struct {
	Bind            string        `yaml:"bind"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Defaults fills unset fields. WriteTimeout stays zero: SSE responses are
// long-lived and must not be cut off by the server.
func (c *Config) Defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8484"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Deps are the collaborators the server exposes over HTTP.
type Deps struct {
	Tasks     *task.Manager
	Approvals *approval.Manager
	Executor  *executor.Executor
	Registry  *tool.Registry
	Metrics   *Metrics
	Logger    *slog.Logger

	// Name and Version populate the agent card.
	Name    string
	Version string
}

// Server is the agentgate HTTP gateway.
type Server struct {
	config Config
	deps   Deps
	logger *slog.Logger
	server *http.Server
}

// New creates a Server. Metrics may be nil, in which case a fresh set is
// registered.
func New(cfg Config, deps Deps) *Server {
	cfg.Defaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(deps.Approvals)
	}
	return &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger,
	}
}

// Handler builds the chi router with all routes wired.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/rpc", s.handleRPC)
	r.Get("/health", s.handleHealth)
	r.Get("/.well-known/agent-card.json", s.handleAgentCard)
	r.Get("/approvals", s.handleListApprovals)
	r.Post("/approvals/{id}", s.handleResolveApproval)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		s.deps.Metrics.Registry(),
		promhttp.HandlerOpts{},
	))

	return r
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.config.Bind,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.config.Bind)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.config.Bind, err)
	}

	go func() {
		s.logger.Info("server listening", "addr", s.config.Bind)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server serve error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
