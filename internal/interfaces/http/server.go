// internal/interfaces/http/server.go
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/jewelry-backend/internal/config"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/handlers"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/middleware"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/routes"
)

// RouterOptions carries what the router needs beyond config
type RouterOptions struct {
	Logger         *logrus.Logger
	Redis          *redis.Client
	Health         *handlers.HealthHandler
	Handlers       routes.Handlers
	Auth           gin.HandlerFunc
	RequestTimeout time.Duration
}

// NewRouter builds the gin engine with the middleware chain and all routes
func NewRouter(cfg *config.Config, opts RouterOptions) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = cfg.Server.RequestTimeout
	}

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(opts.Logger))
	engine.Use(middleware.CORS(cfg))
	engine.Use(middleware.SecurityHeaders())
	engine.Use(middleware.RateLimit(cfg, opts.Redis, opts.Logger))
	engine.Use(middleware.RequestSizeLimit(cfg.Security.MaxRequestBytes))
	engine.Use(middleware.Timeout(timeout))

	engine.GET("/health", opts.Health.Health)
	engine.GET("/ready", opts.Health.Ready)

	routes.SetupRoutes(engine.Group("/api/v1"), opts.Handlers, opts.Auth)

	return engine, nil
}

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	log        logrus.FieldLogger
	httpServer *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, log logrus.FieldLogger, handler http.Handler) *Server {
	return &Server{
		config: cfg,
		log:    log,
		httpServer: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.log.WithField("port", s.config.Server.Port).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
