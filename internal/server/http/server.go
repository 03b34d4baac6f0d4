// Package httpserver provides the HTTP REST API for the metadata
// aggregation service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/scholarmeta/metadata-service/internal/cache"
	"github.com/scholarmeta/metadata-service/internal/service"
)

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MetricsEnabled exposes the Prometheus handler on MetricsPath.
	MetricsEnabled bool
	MetricsPath    string
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	service    *service.Service
	gate       *cache.Gate
	logger     zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, svc *service.Service, gate *cache.Gate, logger zerolog.Logger) *Server {
	s := &Server{
		service: svc,
		gate:    gate,
		logger:  logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter(cfg)

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter(cfg Config) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/papers/search", s.searchPapers)
		r.Get("/papers/lookup", s.lookupPaper)
		r.Get("/trends", s.getTrends)
	})

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	return r
}

// Handler returns the underlying router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status. Cache reachability is
// reported but never fails the probe; the service degrades without it.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	cacheStatus := "disabled"
	if s.gate.Enabled() {
		cacheStatus = "enabled"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"cache":  cacheStatus,
	})
}
