package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkaplan/mixsmith/config"
	"github.com/mkaplan/mixsmith/internal/domain"
	"github.com/mkaplan/mixsmith/internal/job"
	"github.com/mkaplan/mixsmith/internal/session"
)

// SessionRunner runs one end-to-end session.
type SessionRunner interface {
	Run(ctx context.Context, opts session.RunOptions) (*session.Session, error)
}

// TrackBrowser lists library tracks for a genre.
type TrackBrowser interface {
	Query(ctx context.Context, genre string, excludeDays, limit int) ([]domain.TrackMetadata, error)
}

// Server handles HTTP requests for the session pipeline
type Server struct {
	cfg        *config.Config
	router     *gin.Engine
	jobManager *job.Manager
	runner     SessionRunner
	browser    TrackBrowser
}

// New creates a new HTTP server instance
func New(cfg *config.Config, runner SessionRunner, browser TrackBrowser) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	server := &Server{
		cfg:        cfg,
		router:     router,
		jobManager: job.NewManager(),
		runner:     runner,
		browser:    browser,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api/v1")
	{
		api.POST("/sessions", s.createSession)
		api.GET("/jobs/:id", s.getJobStatus)
		api.DELETE("/jobs/:id", s.cancelJob)
		api.GET("/jobs", s.listJobs)
		api.GET("/library/:genre", s.listLibrary)
	}
}

// Start starts the HTTP server
func (s *Server) Start(port string) error {
	slog.Info("starting server", "port", port)
	return s.router.Run(":" + port)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "mixsmith",
	})
}
