package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/logging"
	"github.com/fyrsmithlabs/casegen/internal/pipeline"
	"github.com/fyrsmithlabs/casegen/internal/secrets"
	"github.com/fyrsmithlabs/casegen/internal/telemetry"
)

// DefaultMaxBatchSize bounds batch_process_stories.
const DefaultMaxBatchSize = 50

// Pipeline is the subset of *pipeline.Generator the tools call.
type Pipeline interface {
	ProcessUserStory(ctx context.Context, story domain.UserStory, parentKey string) pipeline.Report
	BatchProcessStories(ctx context.Context, entries []pipeline.BatchEntry) []pipeline.Report
	GetTestCoverageReport(ctx context.Context, project string) pipeline.CoverageReport
}

// Server is an MCP server backed by the pipeline.
type Server struct {
	mcp      *mcp.Server
	pipeline Pipeline
	scrubber secrets.Scrubber
	metrics  *Metrics
	logger   *logging.Logger
	config   *Config
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "casegen")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Logger for structured logging
	Logger *logging.Logger

	// Telemetry supplies the meter for tool metrics. Optional.
	Telemetry *telemetry.Telemetry

	// DefaultProject is used by test_coverage_report when no project is given.
	DefaultProject string

	// MaxBatchSize bounds batch_process_stories (default: DefaultMaxBatchSize)
	MaxBatchSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:         "casegen",
		Version:      "dev",
		Logger:       logging.NewNop(),
		MaxBatchSize: DefaultMaxBatchSize,
	}
}

// NewServer creates an MCP server and registers its tools.
func NewServer(cfg *Config, p Pipeline, scrubber secrets.Scrubber) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if p == nil {
		return nil, errors.New("pipeline is required")
	}
	if scrubber == nil {
		return nil, errors.New("scrubber is required")
	}
	if cfg.Name == "" {
		cfg.Name = "casegen"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:      mcpServer,
		pipeline: p,
		scrubber: scrubber,
		metrics:  NewMetrics(cfg.Telemetry.Meter(instrumentationName), cfg.Logger.Underlying()),
		logger:   cfg.Logger,
		config:   cfg,
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP on stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
