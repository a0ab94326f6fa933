package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry is an enabled Telemetry that keeps spans and metrics in
// memory for assertions.
type TestTelemetry struct {
	*Telemetry

	recorder *tracetest.SpanRecorder
	reader   *sdkmetric.ManualReader
}

// NewTestTelemetry returns a TestTelemetry. Nothing is exported and the
// global providers are left untouched.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	recorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	return &TestTelemetry{
		Telemetry: &Telemetry{
			cfg: cfg,
			tp:  trace.NewTracerProvider(trace.WithSpanProcessor(recorder)),
			mp:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		},
		recorder: recorder,
		reader:   reader,
	}
}

// Spans returns the ended spans named name, in end order.
func (t *TestTelemetry) Spans(name string) []trace.ReadOnlySpan {
	var out []trace.ReadOnlySpan
	for _, s := range t.recorder.Ended() {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

// AssertSpanExists fails tb unless a span named name has ended.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if len(t.Spans(name)) > 0 {
		return
	}
	var seen []string
	for _, s := range t.recorder.Ended() {
		seen = append(seen, s.Name())
	}
	tb.Errorf("no span %q; ended spans: %v", name, seen)
}

// AssertSpanAttribute fails tb unless the first span named spanName has
// attribute key equal to want. Integers compare as int64.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, spanName, key string, want any) {
	tb.Helper()
	spans := t.Spans(spanName)
	if len(spans) == 0 {
		tb.Fatalf("no span %q", spanName)
	}
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) != key {
			continue
		}
		if got := kv.Value.AsInterface(); got != want {
			tb.Errorf("span %q: %s = %v (%T), want %v (%T)", spanName, key, got, got, want, want)
		}
		return
	}
	tb.Errorf("span %q has no attribute %q", spanName, key)
}

// CounterValue sums the int64 counter name over all attribute sets. A
// counter that was never recorded reads as zero.
func (t *TestTelemetry) CounterValue(tb testing.TB, name string) int64 {
	tb.Helper()
	var total int64
	if sum, ok := t.metric(tb, name).(metricdata.Sum[int64]); ok {
		for _, dp := range sum.DataPoints {
			total += dp.Value
		}
	}
	return total
}

// HistogramCount returns how many values the float64 histogram name has
// recorded over all attribute sets.
func (t *TestTelemetry) HistogramCount(tb testing.TB, name string) uint64 {
	tb.Helper()
	var n uint64
	if h, ok := t.metric(tb, name).(metricdata.Histogram[float64]); ok {
		for _, dp := range h.DataPoints {
			n += dp.Count
		}
	}
	return n
}

func (t *TestTelemetry) metric(tb testing.TB, name string) metricdata.Aggregation {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(context.Background(), &rm); err != nil {
		tb.Fatalf("collect metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}
	return nil
}
