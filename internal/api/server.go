// internal/api/server.go

// Package api serves the regime engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	handler "github.com/ghantakiran/axion-stock-sub001/internal/api/handler/api"
	"github.com/ghantakiran/axion-stock-sub001/internal/api/middleware"
	"github.com/ghantakiran/axion-stock-sub001/internal/api/response"
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/metrics"
	"github.com/ghantakiran/axion-stock-sub001/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the regime HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	APIKey       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
	MetricsPath  string
}

// Dependencies are the components the routes call into.
type Dependencies struct {
	Engine    *pipeline.Engine
	Explainer handler.Explainer // optional
	Archive   handler.Archiver  // optional
	Metrics   *metrics.Registry // optional; nil disables /metrics
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Engine == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "api server requires a pipeline engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	mws := []func(http.Handler) http.Handler{middleware.MaxBody(cfg.MaxBodyBytes), metrics.LoggingMiddleware(logger)}
	if deps.Metrics != nil {
		mws = append([]func(http.Handler) http.Handler{metrics.HTTPMiddleware(deps.Metrics)}, mws...)
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	regime := handler.NewRegimeHandler(deps.Engine, deps.Explainer, deps.Archive, s.logger.Named("api"))
	auth := middleware.APIKeyAuth(cfg.APIKey)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	v1 := map[string]http.HandlerFunc{
		"POST /api/v1/regime/analyze":     regime.Analyze,
		"POST /api/v1/regime/detect":      regime.Detect,
		"POST /api/v1/regime/transitions": regime.Transitions,
		"POST /api/v1/regime/forecast":    regime.Forecast,
		"POST /api/v1/regime/ensemble":    regime.Ensemble,
		"GET /api/v1/regime/methods":      regime.Methods,
	}
	for pattern, h := range v1 {
		s.mux.Handle(pattern, auth(h))
	}

	if deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
