package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinelsoc/soc-core/internal/api/handlers"
	"github.com/sentinelsoc/soc-core/internal/api/middleware"
	"github.com/sentinelsoc/soc-core/internal/api/websocket"
	"github.com/sentinelsoc/soc-core/internal/config"
	"github.com/sentinelsoc/soc-core/internal/monitoring"
	"github.com/sentinelsoc/soc-core/internal/services"
	"github.com/sentinelsoc/soc-core/internal/storage"
	"github.com/sentinelsoc/soc-core/pkg/cache"
	"github.com/sentinelsoc/soc-core/pkg/logger"
)

// Stores bundles the persistence interfaces the API serves from.
type Stores struct {
	Events    storage.EventStore
	Rules     storage.RuleStore
	Playbooks storage.PlaybookStore
}

// Services bundles the domain services behind the API surface.
type Services struct {
	Ingestor *services.Ingestor
	Engine   *services.AlertEngine
	Executor *services.PlaybookExecutor
}

type Server struct {
	config     *config.Config
	logger     logger.Logger
	cache      cache.Valkey
	stores     Stores
	services   Services
	hub        *websocket.Hub
	db         handlers.Pinger
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	valkeyCache cache.Valkey,
	stores Stores,
	svcs Services,
	hub *websocket.Hub,
	db handlers.Pinger,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:   cfg,
		logger:   log,
		cache:    valkeyCache,
		stores:   stores,
		services: svcs,
		hub:      hub,
		db:       db,
		router:   gin.New(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(monitoring.HTTPMetricsMiddleware())

	if s.config.RateLimit.Enabled {
		s.router.Use(middleware.RateLimiter(s.cache, s.config.RateLimit.RequestsPerMinute))
	}

	monitoring.SetupPrometheusMetrics(s.router)
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.db, s.cache, s.logger)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	v1 := s.router.Group("/api/v1")
	v1.GET("/health", healthHandler.HealthCheck)
	v1.GET("/ready", healthHandler.ReadinessCheck)

	ingestHandler := handlers.NewIngestHandler(s.services.Ingestor, s.logger)
	v1.POST("/ingest", ingestHandler.IngestEvent)
	v1.POST("/ingest/batch", ingestHandler.IngestBatch)

	eventHandler := handlers.NewEventHandler(s.stores.Events, s.logger)
	v1.GET("/events/:id", eventHandler.GetEvent)
	v1.PATCH("/events/:id/status", eventHandler.UpdateStatus)

	ruleHandler := handlers.NewRuleHandler(s.stores.Rules, s.services.Engine, s.logger)
	v1.POST("/alert-rules", ruleHandler.CreateRule)
	v1.GET("/alert-rules/:id", ruleHandler.GetRule)
	v1.PATCH("/alert-rules/:id", ruleHandler.UpdateRule)
	v1.POST("/alert-rules/:id/toggle", ruleHandler.ToggleRule)
	v1.DELETE("/alert-rules/:id", ruleHandler.DeleteRule)
	v1.POST("/alert-rules/:id/test", ruleHandler.TestRule)

	playbookHandler := handlers.NewPlaybookHandler(s.stores.Playbooks, s.services.Executor, s.logger)
	v1.POST("/playbooks", playbookHandler.CreatePlaybook)
	v1.GET("/playbooks/:id", playbookHandler.GetPlaybook)
	v1.PATCH("/playbooks/:id", playbookHandler.UpdatePlaybook)
	v1.POST("/playbooks/:id/duplicate", playbookHandler.DuplicatePlaybook)
	v1.POST("/playbooks/:id/toggle", playbookHandler.TogglePlaybook)
	v1.POST("/playbooks/:id/archive", playbookHandler.ArchivePlaybook)
	v1.DELETE("/playbooks/:id", playbookHandler.DeletePlaybook)
	v1.POST("/playbooks/:id/execute", playbookHandler.ExecutePlaybook)
	v1.GET("/executions/:id", playbookHandler.GetExecution)
	v1.PATCH("/executions/:id/steps", playbookHandler.UpdateExecutionStep)
	v1.POST("/executions/:id/abort", playbookHandler.AbortExecution)
	v1.POST("/executions/:id/complete", playbookHandler.CompleteExecution)

	wsHandler := handlers.NewWebSocketHandler(s.hub, s.config.WebSocket, s.logger)
	v1.GET("/ws", wsHandler.HandleConnection)
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("REST API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down API server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
