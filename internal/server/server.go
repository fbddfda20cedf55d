package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/voxnote/voxnote/internal/auth"
	"github.com/voxnote/voxnote/internal/transcript"
	"github.com/voxnote/voxnote/pkg/core/health"
	"github.com/voxnote/voxnote/pkg/core/logging"
)

// Server is the VoxNote API server
type Server struct {
	httpServer *http.Server
	handler    *Handler
	hub        *Hub
	health     *health.Registry
	logger     *logging.Logger
	config     Config
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		Version:      "1.0.0",
	}
}

// New creates a new VoxNote server. The hub is registered on the service
// so WebSocket subscribers see merged text as soon as slices land.
func New(cfg Config, svc *transcript.Service, authenticator *auth.Authenticator) (*Server, error) {
	logger := logging.New("api-server")

	hub := NewHub()
	svc.SetNotifier(hub)

	registry := health.NewRegistry("voxnote", cfg.Version)
	registry.Register(health.PingCheck("store", svc.Ping))

	h := NewHandler(svc, authenticator, hub, registry)

	mux := http.NewServeMux()
	mux.Handle("/", h)
	mux.Handle("/api/", h)
	mux.Handle("/api/v1/", h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      loggingMiddleware(logger, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		httpServer: httpServer,
		handler:    h,
		hub:        hub,
		health:     registry,
		logger:     logger,
		config:     cfg,
	}, nil
}

// Health returns the server's health check registry so callers can
// register additional checks before starting
func (s *Server) Health() *health.Registry {
	return s.health
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start),
		)
	})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack is required for the WebSocket upgrade to reach the underlying
// connection through the logging wrapper
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("Starting VoxNote API server",
		"host", s.config.Host,
		"port", s.config.Port,
	)
	return s.httpServer.ListenAndServe()
}

// StartAsync starts the server in the background
func (s *Server) StartAsync() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping VoxNote API server")
	return s.httpServer.Shutdown(ctx)
}
