// Package server
//
// @title RunDown API
// @version 1.0
// @description Session endpoints consumed by the RunDown session watchdog
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rundown-app/rundown/internal/auth"
	"github.com/rundown-app/rundown/internal/config"
	"github.com/rundown-app/rundown/internal/database"
	"github.com/rundown-app/rundown/internal/sessions"
)

const purgeSchedule = "@every 10m"

// Server represents the HTTP server
type Server struct {
	router   *gin.Engine
	db       *gorm.DB
	config   *config.Config
	logger   zerolog.Logger
	sessions *sessions.Service
	version  string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := database.Open(cfg.Database.URL, zlog)
	if err != nil {
		return nil, err
	}

	svc := sessions.NewService(db, auth.NewSigner(cfg.Session.JWTSecret), cfg.Session.TTL, zlog)

	// Seed the configured user on first start
	if cfg.Admin.Email != "" {
		if _, err := svc.EnsureUser(context.Background(), cfg.Admin.Email, cfg.Admin.Name, cfg.Admin.Password); err != nil {
			return nil, fmt.Errorf("failed to seed admin user: %w", err)
		}
	}

	server := &Server{
		db:       db,
		config:   cfg,
		logger:   zlog,
		sessions: svc,
		version:  version,
	}

	server.setupRouter()

	return server, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.SetHTMLTemplate(template.Must(template.New("pages").Parse(pageTemplates)))

	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	if len(s.config.Server.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Public endpoints
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/auth/status", s.authStatus)
	s.router.GET("/login", s.loginPage)
	s.router.POST("/login", s.loginForm)
	s.router.GET("/refresh-auth", s.refreshAuth)
	s.router.GET("/logout", s.logout)
	s.router.POST("/api/auth/login", s.loginJSON)

	requireSession := SessionAuthMiddleware(s.sessions, s.config.Session.SecureCookie, s.logger)

	s.router.GET("/", requireSession, s.home)

	api := s.router.Group("/api")
	api.Use(requireSession)
	{
		api.GET("/auth/me", s.getCurrentUser)
		api.GET("/session", s.getSession)
	}
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the session service
func (s *Server) Sessions() *sessions.Service {
	return s.sessions
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "rundown-api",
		"version":   s.version,
	})
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	purger, err := s.sessions.StartPurger(purgeSchedule)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.config.Server.ListenAddr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	<-purger.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if err := database.Close(s.db); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
