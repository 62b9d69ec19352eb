package api

import (
	"context"
	"net/http"
	"time"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/forms"
	"example.com/backstage/services/procurement/internal/metrics"
	"example.com/backstage/services/procurement/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Dependencies are the services the dashboard server is built on
type Dependencies struct {
	Backend  Backend
	Cache    *cache.Store
	Metrics  *metrics.Metrics
	Tracer   tracing.Tracer
	Notifier forms.Notifier
}

// Server is the dashboard HTTP server
type Server struct {
	config     config.Config
	deps       Dependencies
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates the dashboard server
func NewServer(cfg config.Config, deps Dependencies) *Server {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetrics()
	}
	if deps.Tracer == nil {
		deps.Tracer = tracing.NewNoopTracer()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewStore(cfg.Cache, nil, cache.WithMetrics(deps.Metrics))
	}

	server := &Server{
		config: cfg,
		deps:   deps,
	}
	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Server.Mode != "" {
		gin.SetMode(s.config.Server.Mode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), Logger(), Metrics(s.deps.Metrics))
	if app := s.deps.Tracer.Application(); app != nil {
		router.Use(NewRelic(app))
	}

	dashboard := NewDashboardHandler(s.deps, s.config.Forms.Location())
	dashboard.RegisterRoutes(router)

	metricsHandler := NewMetricsHandler(s.deps.Metrics, s.deps.Tracer)
	metricsHandler.RegisterRoutes(router)

	return router
}

// Router exposes the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting dashboard server")
	s.deps.Metrics.SetHealth("dashboard", true)

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down dashboard server")
	s.deps.Metrics.SetHealth("dashboard", false)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("Dashboard server shut down successfully")
	return nil
}
