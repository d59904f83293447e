// Package api serves the risklab REST API and UI over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	handler "github.com/newthinker/risklab/internal/api/handler/api"
	"github.com/newthinker/risklab/internal/api/middleware"
	"github.com/newthinker/risklab/internal/api/response"
	"github.com/newthinker/risklab/internal/core"
	"github.com/newthinker/risklab/internal/editor"
	"github.com/newthinker/risklab/internal/generator"
	"github.com/newthinker/risklab/internal/logger"
	"github.com/newthinker/risklab/internal/metrics"
	"github.com/newthinker/risklab/internal/runner"
	"github.com/newthinker/risklab/internal/storage/strategy"
	"github.com/newthinker/risklab/internal/storage/testbatch"
	"github.com/newthinker/risklab/internal/web"
)

// Server represents the HTTP server for risklab
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	web        *web.Handler
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	APIKey         string
	AllowedOrigins []string
	TemplatesDir   string
	MetricsPath    string
	Version        string
	Editor         editor.Config
}

// Dependencies holds the services behind the API. Metrics may be nil.
type Dependencies struct {
	Strategies strategy.Store
	Batches    testbatch.Store
	Runner     runner.Runner
	Generator  *generator.Generator
	Scheduler  handler.Scheduler
	Metrics    *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, log *zap.Logger) (*Server, error) {
	log = logger.OrNop(log)
	if deps.Strategies == nil || deps.Batches == nil || deps.Runner == nil || deps.Scheduler == nil {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("api: strategies, batches, runner and scheduler are required"))
	}
	if deps.Generator == nil {
		deps.Generator = generator.New()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	webHandler, err := web.NewHandler(web.Config{
		Editor:       cfg.Editor,
		TemplatesDir: cfg.TemplatesDir,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("creating web handler: %w", err)
	}

	s := &Server{
		logger: log,
		mux:    http.NewServeMux(),
		web:    webHandler,
	}
	s.setupRoutes(cfg, deps)

	mws := []func(http.Handler) http.Handler{
		metrics.LoggingMiddleware(log),
		middleware.CORS(cfg.AllowedOrigins),
	}
	// Innermost: the route label is read from the request the mux matched.
	if deps.Metrics != nil {
		mws = append(mws, metrics.HTTPMiddleware(deps.Metrics))
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      middleware.Chain(s.mux, mws...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	auth := middleware.APIKeyAuth(cfg.APIKey)
	protect := func(pattern string, h http.HandlerFunc) {
		s.mux.Handle(pattern, auth(h))
	}

	strategies := handler.NewStrategiesHandler(deps.Strategies, deps.Runner, deps.Metrics, s.logger)
	protect("GET /api/strategies", strategies.List)
	protect("POST /api/strategies", strategies.Create)
	protect("GET /api/strategies/{id}", strategies.Get)
	protect("PUT /api/strategies/{id}", strategies.Update)
	protect("DELETE /api/strategies/{id}", strategies.Delete)
	protect("POST /api/strategies/{id}/test", strategies.Test)

	tests := handler.NewTestsHandler(deps.Strategies, deps.Batches, deps.Generator, deps.Scheduler, s.logger)
	protect("POST /api/tests/generate-data", tests.GenerateData)
	protect("POST /api/tests/batches", tests.CreateBatch)
	protect("GET /api/tests/batches/{id}", tests.GetBatch)
	protect("GET /api/tests/batches/{id}/report", tests.GetReport)

	s.mux.HandleFunc("GET /api/health", handler.Health(cfg.Version, time.Now()))
	s.mux.HandleFunc("GET /api/editor/config", handler.EditorConfig(cfg.Editor))
	s.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrInvalidRequest,
			fmt.Errorf("no route for %s %s", r.Method, r.URL.Path)))
	})

	if deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, deps.Metrics.Handler())
	}

	// Web UI routes
	s.mux.Handle("/", s.web)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
