// Package api wires the HTTP surface of the reconciliation service.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"conciliador/internal/api/handlers"
	"conciliador/internal/api/middleware"
	"conciliador/internal/application/matching"
	"conciliador/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	service    *matching.Service
}

// NewServer creates a new API server.
func NewServer(cfg Config, repo storage.Repository, service *matching.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		config:  cfg,
		router:  router,
		logger:  logger,
		repo:    repo,
		service: service,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	s.router.GET("/health", handlers.Health)

	api := s.router.Group("/api")
	{
		invoicesHandler := handlers.NewInvoicesHandler(s.repo)
		api.POST("/invoices", invoicesHandler.Create)
		api.GET("/invoices", invoicesHandler.List)
		api.GET("/invoices/:id", invoicesHandler.Get)

		movementsHandler := handlers.NewMovementsHandler(s.repo)
		api.POST("/movements", movementsHandler.Create)
		api.GET("/movements", movementsHandler.List)
		api.GET("/movements/:id", movementsHandler.Get)

		matchingHandler := handlers.NewMatchingHandler(s.repo, s.service)
		api.POST("/matching/run", matchingHandler.Run)
		api.GET("/matching/results", matchingHandler.ListResults)
		api.POST("/matching/manual", matchingHandler.CreateManual)
		api.POST("/matching/results/:id/confirm", matchingHandler.Confirm)
		api.POST("/matching/results/:id/reject", matchingHandler.Reject)
		api.DELETE("/matching/results/:id", matchingHandler.Unmatch)
		api.GET("/matching/suggestions", matchingHandler.Suggestions)
		api.GET("/matching/summary", matchingHandler.Summary)

		settingsHandler := handlers.NewSettingsHandler(s.repo)
		api.GET("/settings", settingsHandler.Get)
		api.PUT("/settings", settingsHandler.Update)
	}
}

// Router exposes the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("starting API server", "port", s.config.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
