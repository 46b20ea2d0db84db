// Package server runs the local probe server of a long-running client:
// Prometheus metrics and health probes, with graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/mastershashi/llm-engineering-usecases/internal/health"
	"github.com/mastershashi/llm-engineering-usecases/internal/log"
)

// Server serves /metrics, /healthz, /health/live and /health/ready.
type Server struct {
	httpServer      *http.Server
	health          *health.Manager
	shutdownTimeout time.Duration
	logger          *log.Logger
}

// Config holds server configuration.
type Config struct {
	// Address is the listen address, e.g. "127.0.0.1:9464".
	Address string

	// Metrics serves /metrics. Nil leaves the route out.
	Metrics http.Handler

	// ShutdownTimeout bounds connection draining. Defaults to 5 seconds.
	ShutdownTimeout time.Duration

	// ReadTimeout defaults to 10 seconds.
	ReadTimeout time.Duration

	Logger *log.Logger
}

// New creates a probe server.
func New(h *health.Manager, cfg Config) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.DefaultLogger()
	}

	s := &Server{
		health:          h,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger.Component("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", s.handleLiveness)
	mux.HandleFunc("GET /health/ready", s.handleReadiness)
	mux.HandleFunc("GET /healthz", s.handleReadiness)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
	}
	return s
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve accepts connections on l until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("probe server listening", "addr", l.Addr().String())
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown fails readiness, then drains connections for at most the
// configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.MarkShutdown()
	s.httpServer.SetKeepAlivesEnabled(false)

	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeProbe(w http.ResponseWriter, result *health.ProbeResult, unhealthyStatus int) {
	w.Header().Set("Content-Type", "application/json")
	if result.Status == health.StatusUnhealthy {
		w.WriteHeader(unhealthyStatus)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Debug("probe response write failed", "error", err.Error())
	}
}

// handleLiveness always answers 200; a shutting-down client is still alive.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	s.writeProbe(w, s.health.Liveness(), http.StatusOK)
}

// handleReadiness answers 503 when any check is unhealthy.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.writeProbe(w, s.health.Readiness(r.Context()), http.StatusServiceUnavailable)
}
