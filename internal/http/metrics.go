package http

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/casegen/internal/http"

var (
	// Story requests wait on model calls, so latency buckets reach minutes.
	latencyBuckets = []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 300}
	sizeBuckets    = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000}
)

// HTTPMetrics records OTEL request metrics per route. It complements the
// Prometheus registry on /metrics, which counts pipeline outcomes.
type HTTPMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	size     metric.Int64Histogram
	inFlight metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the request instruments on meter. Registration
// errors are logged once and the affected instruments stay nil.
func NewHTTPMetrics(meter metric.Meter, logger *zap.Logger) *HTTPMetrics {
	var (
		m    HTTPMetrics
		err  error
		errs []error
	)

	m.requests, err = meter.Int64Counter("casegen.http.requests_total",
		metric.WithDescription("HTTP requests by method, endpoint and status"),
		metric.WithUnit("{request}"))
	errs = append(errs, err)

	m.latency, err = meter.Float64Histogram("casegen.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency by method, endpoint and status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...))
	errs = append(errs, err)

	m.size, err = meter.Int64Histogram("casegen.http.response_size_bytes",
		metric.WithDescription("HTTP response body size"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(sizeBuckets...))
	errs = append(errs, err)

	m.inFlight, err = meter.Int64UpDownCounter("casegen.http.active_requests",
		metric.WithDescription("HTTP requests in progress"),
		metric.WithUnit("{request}"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil && logger != nil {
		logger.Warn("some http instruments are unavailable", zap.Error(err))
	}
	return &m
}

// MetricsMiddleware records each request once the handler returns.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if m.inFlight != nil {
				m.inFlight.Add(ctx, 1)
				defer m.inFlight.Add(ctx, -1)
			}

			start := time.Now()
			err := next(c)
			took := time.Since(start)

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", normalizePath(c.Path())),
				attribute.Int("status", c.Response().Status),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.latency != nil {
				m.latency.Record(ctx, took.Seconds(), attrs)
			}
			if m.size != nil {
				m.size.Record(ctx, c.Response().Size, attrs)
			}
			return err
		}
	}
}

// normalizePath labels requests by matched route. Unmatched requests share
// one label to keep cardinality bounded.
func normalizePath(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}
