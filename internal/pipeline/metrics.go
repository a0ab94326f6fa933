package pipeline

import (
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/casegen/internal/pipeline"

// Metric names.
const (
	MetricGenerated  = "casegen.pipeline.test_cases_generated"
	MetricCreated    = "casegen.pipeline.issues_created"
	MetricFailed     = "casegen.pipeline.issues_failed"
	MetricLowQuality = "casegen.pipeline.low_quality_test_cases"
	MetricDuration   = "casegen.pipeline.story_duration"
)

type metrics struct {
	generated  metric.Int64Counter
	created    metric.Int64Counter
	failed     metric.Int64Counter
	lowQuality metric.Int64Counter
	duration   metric.Float64Histogram
}

// newMetrics creates the instruments. An instrument that fails to register
// is left nil and skipped when recording.
func newMetrics(meter metric.Meter, logger *zap.Logger) *metrics {
	m := &metrics{}
	var err error

	m.generated, err = meter.Int64Counter(MetricGenerated,
		metric.WithDescription("Test cases returned by the completion service"),
		metric.WithUnit("{test_case}"),
	)
	if err != nil {
		logger.Warn("failed to create generated counter", zap.Error(err))
	}

	m.created, err = meter.Int64Counter(MetricCreated,
		metric.WithDescription("Tracker issues created for test cases"),
		metric.WithUnit("{issue}"),
	)
	if err != nil {
		logger.Warn("failed to create created counter", zap.Error(err))
	}

	m.failed, err = meter.Int64Counter(MetricFailed,
		metric.WithDescription("Test cases the tracker refused or that errored while publishing"),
		metric.WithUnit("{issue}"),
	)
	if err != nil {
		logger.Warn("failed to create failed counter", zap.Error(err))
	}

	m.lowQuality, err = meter.Int64Counter(MetricLowQuality,
		metric.WithDescription("Test cases scored below the quality floor and published anyway"),
		metric.WithUnit("{test_case}"),
	)
	if err != nil {
		logger.Warn("failed to create low quality counter", zap.Error(err))
	}

	m.duration, err = meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Wall time to process one user story end to end"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	return m
}
