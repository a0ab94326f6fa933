package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/casegen/internal/completion"
	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/logging"
	"github.com/fyrsmithlabs/casegen/internal/telemetry"
	"github.com/fyrsmithlabs/casegen/internal/tracker"
)

// Defaults for the Generator.
const (
	DefaultQualityFloor = 6.0
	DefaultBatchPause   = time.Second
)

// TestCaseSource produces and reviews test cases. *completion.Client
// satisfies it.
type TestCaseSource interface {
	GenerateTestCases(ctx context.Context, story domain.UserStory) ([]domain.TestCase, error)
	ValidateTestCase(ctx context.Context, tc domain.TestCase) completion.Assessment
}

// IssueSink publishes test cases and answers coverage queries.
// *tracker.Client satisfies it.
type IssueSink interface {
	CreateTestIssue(ctx context.Context, tc domain.TestCase, parentKey string) (string, bool)
	LinkIssues(ctx context.Context, source, target, linkType string) bool
	SearchIssues(ctx context.Context, query string) ([]tracker.Issue, error)
	StoryQuery(project string) string
	TestQuery(project string) string
	LinkType() string
}

// Generator drives stories through generation, review and publishing.
// Stories within one call are processed sequentially. A Generator is never
// mutated after NewGenerator, so it is safe for concurrent use when its
// source and sink are; the HTTP and MCP servers share one across requests.
type Generator struct {
	source       TestCaseSource
	sink         IssueSink
	logger       *logging.Logger
	tracer       trace.Tracer
	metrics      *metrics
	qualityFloor float64
	batchPause   time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithTelemetry records spans and metrics through t.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(g *Generator) {
		g.tracer = t.Tracer(instrumentationName)
		g.metrics = newMetrics(t.Meter(instrumentationName), g.logger.Underlying())
	}
}

// WithQualityFloor sets the score below which a warning is logged.
func WithQualityFloor(floor float64) Option {
	return func(g *Generator) {
		g.qualityFloor = floor
	}
}

// WithBatchPause sets the pause between stories of a batch.
func WithBatchPause(d time.Duration) Option {
	return func(g *Generator) {
		g.batchPause = d
	}
}

// NewGenerator creates a Generator.
func NewGenerator(source TestCaseSource, sink IssueSink, opts ...Option) *Generator {
	g := &Generator{
		source:       source,
		sink:         sink,
		logger:       logging.NewNop(),
		qualityFloor: DefaultQualityFloor,
		batchPause:   DefaultBatchPause,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.tracer == nil {
		WithTelemetry(nil)(g)
	}
	return g
}

// ProcessUserStory generates test cases for story and publishes each one,
// linking it to parentKey when given. It never fails; every problem is
// recorded in the returned report.
func (g *Generator) ProcessUserStory(ctx context.Context, story domain.UserStory, parentKey string) Report {
	if logging.RunIDFromContext(ctx) == "" {
		ctx = logging.WithRunID(ctx, uuid.NewString())
	}
	ctx, span := g.tracer.Start(ctx, "pipeline.process_story",
		trace.WithAttributes(
			attribute.String("story.title", story.Title),
			attribute.String("story.parent_key", parentKey),
		),
	)
	defer span.End()
	start := time.Now()

	report := newReport(story.Title)
	defer func() {
		span.SetAttributes(
			attribute.Int("test_cases.generated", report.GeneratedTestCases),
			attribute.Int("issues.created", report.CreatedIssues),
			attribute.Int("issues.failed", report.FailedIssues),
		)
		if len(report.Errors) > 0 {
			span.SetStatus(codes.Error, report.Errors[0])
		}
		if g.metrics.duration != nil {
			g.metrics.duration.Record(ctx, time.Since(start).Seconds())
		}
	}()

	if err := story.Validate(); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("Invalid user story: %v", err))
		g.logger.Error(ctx, "invalid user story", zap.Error(err))
		return report
	}

	g.logger.Info(ctx, "generating test cases", zap.String("story", story.Title))
	cases, err := g.generate(ctx, story)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("Error processing user story: %v", err))
		g.logger.Error(ctx, "error processing user story", zap.Error(err))
		span.RecordError(err)
		return report
	}

	report.GeneratedTestCases = len(cases)
	g.add(ctx, g.metrics.generated, len(cases))
	if len(cases) == 0 {
		report.Errors = append(report.Errors, "No test cases generated")
		return report
	}

	for _, tc := range cases {
		g.publish(ctx, &report, tc, parentKey)
	}

	g.logger.Info(ctx, "completed processing",
		zap.String("story", story.Title),
		zap.Int("created", report.CreatedIssues),
		zap.Int("failed", report.FailedIssues),
	)
	return report
}

// generate calls the source, converting a panic into an error.
func (g *Generator) generate(ctx context.Context, story domain.UserStory) (cases []domain.TestCase, err error) {
	defer func() {
		if r := recover(); r != nil {
			cases, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return g.source.GenerateTestCases(ctx, story)
}

// publish reviews and creates one test case. Link failures are ignored.
func (g *Generator) publish(ctx context.Context, report *Report, tc domain.TestCase, parentKey string) {
	defer func() {
		if r := recover(); r != nil {
			report.FailedIssues++
			report.Errors = append(report.Errors, fmt.Sprintf("Error processing test case '%s': %v", tc.Title, r))
			g.add(ctx, g.metrics.failed, 1)
			g.logger.Error(ctx, "error processing test case",
				zap.String("test_case", tc.Title),
				zap.Any("panic", r),
			)
		}
	}()

	assessment := g.source.ValidateTestCase(ctx, tc)
	if assessment.QualityScore < g.qualityFloor {
		g.add(ctx, g.metrics.lowQuality, 1)
		g.logger.Warn(ctx, "low quality test case",
			zap.String("test_case", tc.Title),
			zap.Float64("quality_score", assessment.QualityScore),
			zap.String("feedback", assessment.Feedback),
		)
	}

	key, ok := g.sink.CreateTestIssue(ctx, tc, parentKey)
	if !ok {
		report.FailedIssues++
		report.Errors = append(report.Errors, "Failed to create issue for: "+tc.Title)
		g.add(ctx, g.metrics.failed, 1)
		return
	}

	report.TestCaseKeys = append(report.TestCaseKeys, key)
	report.CreatedIssues++
	g.add(ctx, g.metrics.created, 1)

	if parentKey != "" {
		g.sink.LinkIssues(ctx, key, parentKey, g.sink.LinkType())
	}
}

func (g *Generator) add(ctx context.Context, c metric.Int64Counter, n int) {
	if c != nil && n > 0 {
		c.Add(ctx, int64(n))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
