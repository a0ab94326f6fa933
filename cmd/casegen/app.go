package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/casegen/internal/completion"
	"github.com/fyrsmithlabs/casegen/internal/config"
	"github.com/fyrsmithlabs/casegen/internal/logging"
	"github.com/fyrsmithlabs/casegen/internal/pipeline"
	"github.com/fyrsmithlabs/casegen/internal/secrets"
	"github.com/fyrsmithlabs/casegen/internal/telemetry"
	"github.com/fyrsmithlabs/casegen/internal/tracker"
)

// app holds the clients built from one configuration.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	scrubber  secrets.Scrubber
	tracker   *tracker.Client
	generator *pipeline.Generator
}

// newApp loads configuration and constructs every client. The process
// fails to start only here: when configuration is invalid or a client
// cannot be constructed.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Pipeline.LogLevel = opts.logLevel
	}

	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := newLogger(cfg, tel)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, telemetry: tel}
	if err := a.build(ctx); err != nil {
		_ = a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func newLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg, err := logging.FromPipeline(cfg.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	logCfg.Output.OTEL = cfg.Observability.EnableTelemetry
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func (a *app) build(ctx context.Context) error {
	cfg := a.cfg

	scrubber, err := secrets.New(cfg.Secrets)
	if err != nil {
		return fmt.Errorf("failed to initialize secret scrubber: %w", err)
	}
	a.scrubber = scrubber

	httpClient := &http.Client{Timeout: cfg.Pipeline.Timeout.Duration()}

	model, err := completion.NewModel(ctx, cfg.Completion, httpClient)
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}
	source := completion.NewClient(model,
		completion.WithRequestsPerMinute(cfg.Completion.RequestsPerMinute),
		completion.WithScrubber(scrubber),
		completion.WithLogger(a.logger.Named("completion")),
	)

	a.tracker, err = tracker.New(ctx, cfg.Tracker, httpClient, a.logger.Named("tracker"))
	if err != nil {
		return fmt.Errorf("failed to create tracker client: %w", err)
	}

	a.generator = pipeline.NewGenerator(source, a.tracker,
		pipeline.WithLogger(a.logger.Named("pipeline")),
		pipeline.WithTelemetry(a.telemetry),
		pipeline.WithQualityFloor(cfg.Pipeline.QualityFloor),
		pipeline.WithBatchPause(cfg.Pipeline.BatchPause.Duration()),
	)

	a.logger.Debug(ctx, "clients initialized",
		zap.String("completion_provider", cfg.Completion.Provider),
		zap.String("completion_model", cfg.Completion.Model),
		zap.String("tracker_provider", cfg.Tracker.Provider),
		zap.String("project", cfg.Tracker.ProjectKey),
		logging.Secret("completion_api_key", cfg.Completion.APIKey),
	)
	return nil
}

// close flushes telemetry and logs.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.logger.Sync(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
