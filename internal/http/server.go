// Package http serves the read-only introspection API for locus.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/locus/internal/services"
	"github.com/fyrsmithlabs/locus/pkg/registry"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server exposes registry state over HTTP.
type Server struct {
	echo    *echo.Echo
	reg     *registry.Registry
	greeter *registry.Handle[services.Greeter]
	logger  *zap.Logger
	config  *Config
	started time.Time
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// MetricsPath serves Gatherer when both are set.
	MetricsPath string
	Gatherer    prometheus.Gatherer
	// Metrics records otel request metrics when set.
	Metrics *HTTPMetrics
	// RateLimit caps requests per second per client IP. Zero disables it.
	RateLimit float64
	RateBurst int
}

// NewServer creates a server reading from reg.
func NewServer(reg *registry.Registry, logger *zap.Logger, cfg *Config) (*Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 8765,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.Metrics != nil {
		e.Use(cfg.Metrics.MetricsMiddleware())
	}
	if cfg.RateLimit > 0 {
		e.Use(rateLimiter(cfg.RateLimit, cfg.RateBurst))
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Debug("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	})

	s := &Server{
		echo:    e,
		reg:     reg,
		greeter: services.GreeterCapability.Resolve(reg),
		logger:  logger,
		config:  cfg,
		started: time.Now(),
	}
	s.registerRoutes()
	return s, nil
}

// rateLimiter limits each client IP to limit requests per second.
func rateLimiter(limit float64, burst int) echo.MiddlewareFunc {
	if burst < 1 {
		burst = 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(limit),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.GET("/capabilities", s.handleCapabilities)
	v1.GET("/capabilities/:key", s.handleCapability)
	v1.GET("/greet", s.handleGreet)

	if s.config.MetricsPath != "" && s.config.Gatherer != nil {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(
			promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}),
		))
	}
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:       "ok",
		Capabilities: len(s.reg.Keys()),
		Uptime:       time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleCapabilities(c echo.Context) error {
	byKey := make(map[registry.Key]*CapabilitySummary)
	var order []registry.Key

	for _, info := range s.reg.Snapshot() {
		sum, ok := byKey[info.Key]
		if !ok {
			sum = &CapabilitySummary{Capability: info.Key.String()}
			byKey[info.Key] = sum
			order = append(order, info.Key)
		}
		sum.Entries++
		if info.Primary {
			sum.Primary = describe(info)
		}
	}
	out := make([]CapabilitySummary, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}

	return c.JSON(http.StatusOK, CapabilitiesResponse{
		Resolution:   s.reg.Resolution().String(),
		Capabilities: out,
	})
}

func (s *Server) handleCapability(c echo.Context) error {
	key, err := registry.ParseKey(c.Param("key"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid capability key")
	}

	entries := s.reg.Describe(key)
	if len(entries) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "capability not registered")
	}

	resp := CapabilityResponse{
		Capability: key.String(),
		Entries:    entries,
	}
	if _, ok := s.reg.FindAny(key); ok {
		for _, info := range entries {
			if info.Primary {
				resp.Resolved = describe(info)
				break
			}
		}
		if resp.Resolved == "" {
			resp.Resolved = describe(entries[0])
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// handleGreet resolves through a long-lived handle, refreshing it only
// after its target has been unregistered.
func (s *Server) handleGreet(c echo.Context) error {
	g, err := s.greeter.Get()
	if errors.Is(err, registry.ErrExpiredReference) && s.greeter.Refresh() {
		s.logger.Debug("greeter handle refreshed")
		g, err = s.greeter.Get()
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no greeter registered")
	}

	return c.JSON(http.StatusOK, GreetResponse{
		Greeting: g.Greet(c.QueryParam("name")),
		Style:    g.Style(),
	})
}

func describe(info registry.EntryInfo) string {
	if info.Name != "" {
		return info.Name
	}
	return info.Type
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	addr := s.Addr()
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
