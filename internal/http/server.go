// Package http provides the HTTP API for attnd.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/attnd/internal/folder"
	"github.com/fyrsmithlabs/attnd/internal/logging"
)

// Server provides HTTP endpoints for attnd.
type Server struct {
	echo    *echo.Echo
	folders *folder.Service
	logger  *zap.Logger
	config  *Config
	metrics *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// BodyLimit caps request bodies, in echo's size notation ("8M").
	BodyLimit string

	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit float64
	RateBurst int

	// MeterProvider receives the API metrics. Nil uses the global provider.
	MeterProvider metric.MeterProvider
}

// NewServer creates a new HTTP server.
func NewServer(folders *folder.Service, logger *zap.Logger, cfg *Config) (*Server, error) {
	if folders == nil {
		return nil, fmt.Errorf("folder service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 7420,
		}
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "8M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	s := &Server{
		echo:    e,
		folders: folders,
		logger:  logger,
		config:  cfg,
		metrics: NewHTTPMetrics(cfg.MeterProvider, logger),
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestContext(logger))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.Use(s.metrics.MetricsMiddleware())
	if cfg.RateLimit > 0 {
		e.Use(rateLimiter(cfg.RateLimit, cfg.RateBurst))
	}
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	s.registerRoutes()

	return s, nil
}

// requestContext carries the request id and a request-scoped logger on the
// request context.
func requestContext(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), id)
			ctx = logging.WithLogger(ctx, logging.FromZap(logger.With(zap.String("request_id", id))))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// rateLimiter throttles API requests per client IP. Health and metrics
// scrapes are never limited.
func rateLimiter(limit float64, burst int) echo.MiddlewareFunc {
	if burst < 1 {
		burst = int(limit) + 1
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/analyze", s.handleAnalyze)
	v1.GET("/tree", s.handleTree)
	v1.GET("/file", s.handleFileContent)
	v1.PUT("/file", s.handleUpdateFile)
	v1.GET("/metadata", s.handleFileMetadata)
	v1.PUT("/metadata", s.handleUpdateMetadata)
	v1.GET("/metadata/all", s.handleAllMetadata)
	v1.PUT("/metadata/all", s.handleReplaceAllMetadata)
}

// Echo exposes the router for additional routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
