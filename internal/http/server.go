// Package http exposes the test-case pipeline over an HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/logging"
	"github.com/fyrsmithlabs/casegen/internal/pipeline"
	"github.com/fyrsmithlabs/casegen/internal/telemetry"
)

// DefaultMaxBatchSize bounds the number of stories in one batch request.
const DefaultMaxBatchSize = 50

// Pipeline is the subset of *pipeline.Generator the server calls.
type Pipeline interface {
	ProcessUserStory(ctx context.Context, story domain.UserStory, parentKey string) pipeline.Report
	BatchProcessStories(ctx context.Context, entries []pipeline.BatchEntry) []pipeline.Report
	GetTestCoverageReport(ctx context.Context, project string) pipeline.CoverageReport
}

// Server provides HTTP endpoints for casegen.
type Server struct {
	echo     *echo.Echo
	pipeline Pipeline
	logger   *logging.Logger
	config   *Config
	prom     *promMetrics
	tel      *telemetry.Telemetry
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// DefaultProject is used by GET /api/v1/coverage when no project is given.
	DefaultProject string
	MaxBatchSize   int
	Version        string
}

// Option configures a Server.
type Option func(*options)

type options struct {
	telemetry *telemetry.Telemetry
}

// WithTelemetry records OTEL request metrics through t.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(o *options) { o.telemetry = t }
}

// NewServer creates a new HTTP server.
func NewServer(p Pipeline, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if p == nil {
		return nil, errors.New("pipeline cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 9191,
		}
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		pipeline: p,
		logger:   logger,
		config:   cfg,
		prom:     newPromMetrics(),
		tel:      o.telemetry,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:        uuid.NewString,
		RequestIDHandler: requestIDToContext,
	}))
	e.Use(NewHTTPMetrics(o.telemetry.Meter(httpInstrumentationName), logger.Underlying()).MetricsMiddleware())
	e.Use(s.logRequests)

	s.registerRoutes()
	return s, nil
}

// requestIDToContext copies the request ID into the request context so
// pipeline logs carry it. Caller-supplied IDs that the logger would reject
// are replaced.
func requestIDToContext(c echo.Context, id string) {
	if !logging.IsValidID(id) {
		id = uuid.NewString()
		c.Response().Header().Set(echo.HeaderXRequestID, id)
	}
	req := c.Request()
	c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		s.logger.Info(c.Request().Context(), "http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(s.prom.handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/stories", s.handleProcessStory)
	v1.POST("/stories/batch", s.handleBatch)
	v1.GET("/coverage", s.handleCoverage)
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Version: s.config.Version}
	if s.tel != nil {
		st := s.tel.Status()
		resp.Telemetry = &st
	}
	return c.JSON(http.StatusOK, resp)
}

// handleProcessStory runs one story through the pipeline. Partial failures
// are part of the report, so any processed story answers 200.
func (s *Server) handleProcessStory(c echo.Context) error {
	ctx := c.Request().Context()

	var req StoryRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid story request", zap.Error(err))
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Story == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "story field is required")
	}
	if err := req.Story.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	report := s.pipeline.ProcessUserStory(ctx, *req.Story, req.ParentKey)
	s.prom.observeReport(report)
	return c.JSON(http.StatusOK, report)
}

// handleBatch processes a batch. Malformed entries are reported in place.
func (s *Server) handleBatch(c echo.Context) error {
	ctx := c.Request().Context()

	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid batch request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Stories) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "stories field is required")
	}
	if len(req.Stories) > s.config.MaxBatchSize {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("batch too large: %d stories (max %d)", len(req.Stories), s.config.MaxBatchSize))
	}

	reports := s.pipeline.BatchProcessStories(ctx, req.Stories)
	for _, r := range reports {
		s.prom.observeReport(r)
	}
	return c.JSON(http.StatusOK, BatchResponse{Reports: reports})
}

// handleCoverage returns the coverage report. A tracker failure yields the
// empty report, serialized as {}.
func (s *Server) handleCoverage(c echo.Context) error {
	project := c.QueryParam("project")
	if project == "" {
		project = s.config.DefaultProject
	}
	if project == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "project query parameter is required")
	}

	report := s.pipeline.GetTestCoverageReport(c.Request().Context(), project)
	s.prom.observeCoverage(report)
	return c.JSON(http.StatusOK, report)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server and blocks until it stops. A graceful
// shutdown is not reported as an error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
