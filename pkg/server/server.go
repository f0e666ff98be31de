package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	ccmemory "github.com/patrickkidd/ccmemory"
	"github.com/patrickkidd/ccmemory/pkg/config"
	"github.com/patrickkidd/ccmemory/pkg/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	memory ccmemory.Memory
	server *http.Server
	log    *slog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, memory ccmemory.Memory, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		config: cfg,
		memory: memory,
		log:    log,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.memory)
	factsHandler := handlers.NewFactsHandler(s.memory)
	graphHandler := handlers.NewGraphHandler(s.memory)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)

	v1 := s.router.Group("/api/v1")
	{
		// Fact ingestion
		v1.POST("/facts", factsHandler.CreateFact)
		v1.POST("/extract", factsHandler.Extract)
		v1.POST("/backfill", factsHandler.Backfill)

		// Retrieval
		v1.GET("/facts", factsHandler.Recent)
		v1.GET("/facts/:id", factsHandler.GetFact)
		v1.POST("/search", factsHandler.Search)
		v1.GET("/questions/open", factsHandler.OpenQuestions)
		v1.GET("/failed-approaches", factsHandler.FailedApproaches)
		v1.GET("/decisions/stale", factsHandler.StaleDecisions)
		v1.GET("/topics/:topic", factsHandler.TopicFacts)
		v1.POST("/session-context", factsHandler.SessionContext)

		// Graph maintenance
		v1.POST("/edges", graphHandler.Assert)
		v1.POST("/relink", graphHandler.Relink)
		v1.POST("/promote", graphHandler.Promote)
		v1.DELETE("/project", graphHandler.Purge)
		v1.GET("/metrics", graphHandler.Metrics)
		v1.GET("/patterns/exceptions", graphHandler.ExceptionClusters)
		v1.GET("/patterns/chains", graphHandler.SupersessionChains)
		v1.GET("/patterns/corrections", graphHandler.CorrectionHotspots)
	}
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	s.log.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
