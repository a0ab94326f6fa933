package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/casegen/internal/domain"
)

const instrumentationName = "github.com/fyrsmithlabs/casegen/internal/mcp"

// Tool calls wait on the completion service, so buckets reach five minutes.
var toolBuckets = []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 300}

// Metrics records MCP tool calls. Nil instruments are skipped.
type Metrics struct {
	calls    metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

// NewMetrics registers the tool instruments on meter. Registration errors
// are logged once and the affected instruments stay nil.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	var (
		m    Metrics
		err  error
		errs []error
	)

	m.calls, err = meter.Int64Counter("casegen.mcp.tool.invocations_total",
		metric.WithDescription("MCP tool calls by tool name"),
		metric.WithUnit("{invocation}"))
	errs = append(errs, err)

	m.failures, err = meter.Int64Counter("casegen.mcp.tool.errors_total",
		metric.WithDescription("MCP tool calls that returned an error, by reason"),
		metric.WithUnit("{error}"))
	errs = append(errs, err)

	m.latency, err = meter.Float64Histogram("casegen.mcp.tool.duration_seconds",
		metric.WithDescription("MCP tool call latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(toolBuckets...))
	errs = append(errs, err)

	m.inFlight, err = meter.Int64UpDownCounter("casegen.mcp.tool.active_requests",
		metric.WithDescription("MCP tool calls in progress"),
		metric.WithUnit("{request}"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil && logger != nil {
		logger.Warn("some mcp tool instruments are unavailable", zap.Error(err))
	}
	return &m
}

// track counts tool as in flight until the returned func is called with
// the call's outcome.
func (m *Metrics) track(ctx context.Context, tool string) func(err error) {
	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	if m.inFlight != nil {
		m.inFlight.Add(ctx, 1, attrs)
	}
	return func(err error) {
		if m.inFlight != nil {
			m.inFlight.Add(ctx, -1, attrs)
		}
		m.RecordInvocation(ctx, tool, time.Since(start), err)
	}
}

// RecordInvocation records one finished tool call.
func (m *Metrics) RecordInvocation(ctx context.Context, tool string, took time.Duration, err error) {
	toolAttr := attribute.String("tool", tool)
	if m.calls != nil {
		m.calls.Add(ctx, 1, metric.WithAttributes(toolAttr))
	}
	if m.latency != nil {
		m.latency.Record(ctx, took.Seconds(), metric.WithAttributes(toolAttr))
	}
	if err != nil && m.failures != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(toolAttr, attribute.String("reason", categorizeError(err))))
	}
}

// categorizeError maps err to a low-cardinality reason label.
func categorizeError(err error) string {
	if err == nil {
		return ""
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return "validation_error"
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too large"):
		return "limit_exceeded"
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "required"):
		return "validation_error"
	case strings.Contains(msg, "timeout"):
		return "timeout"
	default:
		return "internal_error"
	}
}
