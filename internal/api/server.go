// Package api provides the HTTP surface of the authentication core: the
// public API server (login, validate) and the admin server (health,
// readiness, metrics).
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/plmforge/auth-core/internal/auth"
)

// Config configures the API server.
type Config struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// DefaultConfig returns default API server configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		CORSOrigins:  []string{"*"},
	}
}

// Server is the public API server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	handler    *AuthHandler
	gate       *auth.Gate
	logger     *zap.Logger
	config     Config
}

// New creates the API server with the authentication gate mounted ahead of
// every route.
func New(cfg Config, handler *AuthHandler, gate *auth.Gate, logger *zap.Logger) (*Server, error) {
	if handler == nil {
		return nil, fmt.Errorf("auth handler is required")
	}
	if gate == nil {
		return nil, fmt.Errorf("authentication gate is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		router:  router,
		handler: handler,
		gate:    gate,
		logger:  logger,
		config:  cfg,
	}

	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

// registerRoutes wires global middleware and routes. Ordering matters: the
// gate runs after recovery/logging/CORS and before every handler, exactly
// once per request.
func (s *Server) registerRoutes() {
	s.router.Use(s.recoveryMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.gate.Handler())

	s.router.GET("/health", s.healthHandler)

	v1 := s.router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		authGroup.POST("/login", s.handler.Login)
		authGroup.GET("/validate", s.handler.Validate)
	}
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("Starting API server",
		zap.String("addr", s.config.ListenAddr),
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", c.ClientIP()),
		)
	}
}

// recoveryMiddleware recovers from handler panics
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// corsMiddleware adds CORS headers and answers preflight requests. The
// Authorization header must be allowed or browsers strip the bearer token.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowed := "*"
	if len(s.config.CORSOrigins) == 1 {
		allowed = s.config.CORSOrigins[0]
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed != "*" || origin == "" {
			origin = allowed
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH, HEAD")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Expose-Headers", "Authorization, Content-Type")
		c.Header("Access-Control-Max-Age", "3600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}
