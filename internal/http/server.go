// Package http serves the scan API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/logging"
	"github.com/fyrsmithlabs/vibeguard/internal/metrics"
	"github.com/fyrsmithlabs/vibeguard/internal/pipeline"
	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Scanner runs repository scans.
type Scanner interface {
	ScanURL(ctx context.Context, rawURL string, timeout time.Duration) (*pipeline.Report, error)
	Rules() []scanner.Rule
}

// Server provides the HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	scanner  Scanner
	logger   *zap.Logger
	config   *Config
	metrics  *metrics.Metrics
	limiters *clientLimiters
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// BodyLimit caps request bodies, e.g. "64K".
	BodyLimit string
	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string
	RateLimit   RateLimitConfig
	// ScanTimeout bounds each archive download. Zero uses the ingestor's default.
	ScanTimeout time.Duration
}

// DefaultConfig returns the settings used when NewServer gets a nil config.
func DefaultConfig() *Config {
	return &Config{
		Host:        "localhost",
		Port:        8080,
		BodyLimit:   "64K",
		MetricsPath: "/metrics",
		RateLimit:   RateLimitConfig{Enabled: true, RPS: 1, Burst: 5},
	}
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	metrics       *metrics.Metrics
	gatherer      prometheus.Gatherer
	meterProvider metric.MeterProvider
}

// WithMetrics records rate limiter rejections on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithGatherer sets the registry served on the metrics path. Defaults to
// the global Prometheus registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *options) { o.gatherer = g }
}

// WithMeterProvider sets the provider for HTTP request metrics. Defaults
// to the global OpenTelemetry provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// NewServer creates a new HTTP server.
func NewServer(sc Scanner, logger *zap.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if sc == nil {
		return nil, fmt.Errorf("scanner cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	o := options{gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(&o)
	}

	httpMetrics, err := NewHTTPMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		scanner: sc,
		logger:  logger,
		config:  cfg,
		metrics: o.metrics,
	}
	if cfg.RateLimit.Enabled {
		s.limiters = newClientLimiters(cfg.RateLimit)
	}
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)
	e.Use(httpMetrics.MetricsMiddleware())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	s.registerRoutes(o.gatherer)
	return s, nil
}

// requestLogger logs each request and carries the request ID into the
// request context for downstream logging.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), requestID)))

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		s.logger.Info("http request",
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestID),
		)
		return nil
	}
}

func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.GET("/rules", s.handleRules)
	api.POST("/scan/github", s.handleScan, s.rateLimit)

	if s.config.MetricsPath != "" {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// rateLimit rejects clients that exhausted their token bucket.
func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.limiters == nil {
			return next(c)
		}
		ip := c.RealIP()
		if !s.limiters.allow(ip) {
			s.metrics.RecordRateLimited()
			s.logger.Warn("rate limit exceeded", zap.String("ip", ip))
			c.Response().Header().Set("Retry-After", "1")
			return writeError(c, KindRateLimited, "too many scan requests, retry later")
		}
		return next(c)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleRules(c echo.Context) error {
	return c.JSON(http.StatusOK, rulesResponse(s.scanner.Rules()))
}

// handleScan scans the repository named in the request body.
func (s *Server) handleScan(c echo.Context) error {
	var req ScanRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, KindBadRequest, "invalid request body")
	}
	if req.RepoURL == "" {
		return writeError(c, pipeline.KindInvalidURL, "repo_url field is required")
	}

	report, err := s.scanner.ScanURL(c.Request().Context(), req.RepoURL, s.config.ScanTimeout)
	if err != nil {
		kind := pipeline.Kind(err)
		detail := err.Error()
		if kind == pipeline.KindInternal {
			detail = "internal error"
		}
		return writeError(c, kind, detail)
	}

	return c.JSON(http.StatusOK, report)
}

// Echo exposes the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start listens on the configured address. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.Addr()))
	return s.echo.Start(s.Addr())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
