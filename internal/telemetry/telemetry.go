package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Telemetry holds the providers that pipeline runs, the HTTP API and the MCP
// tools record into. An exporter that cannot be built leaves its signal on
// the global no-op provider and is listed in Status().Problems.
type Telemetry struct {
	cfg *Config
	tp  *trace.TracerProvider
	mp  *sdkmetric.MeterProvider

	mu       sync.Mutex
	stopped  bool
	problems []string
}

// Status is the telemetry section of the /health response.
type Status struct {
	Enabled  bool     `json:"enabled"`
	Degraded bool     `json:"degraded"`
	Problems []string `json:"problems,omitempty"`
}

// New builds providers from cfg. With cfg.Enabled false nothing is exported
// and Tracer and Meter fall back to the globals.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{cfg: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	res := newResource(cfg)

	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		t.problem("traces disabled: %v", err)
	} else {
		t.tp = tp
		otel.SetTracerProvider(tp)
	}

	if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
		t.problem("metrics disabled: %v", err)
	} else if mp != nil {
		t.mp = mp
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// Tracer returns a tracer for the named scope. Safe on a nil receiver.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t == nil || t.tp == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.tp.Tracer(name, opts...)
}

// Meter returns a meter for the named scope. Safe on a nil receiver.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.mp == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return t.mp.Meter(name, opts...)
}

// LoggerProvider feeds the zap OTEL bridge. Nil unless telemetry is on.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if !t.IsEnabled() {
		return nil
	}
	return global.GetLoggerProvider()
}

// IsEnabled reports whether telemetry was configured on and has not been
// shut down.
func (t *Telemetry) IsEnabled() bool {
	if t == nil || t.cfg == nil || !t.cfg.Enabled {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.stopped
}

// Status snapshots the telemetry state.
func (t *Telemetry) Status() Status {
	if t == nil {
		return Status{}
	}
	enabled := t.IsEnabled()
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		Enabled:  enabled,
		Degraded: len(t.problems) > 0,
		Problems: append([]string(nil), t.problems...),
	}
}

// Shutdown flushes pending spans and metrics. Without a deadline on ctx the
// configured shutdown timeout applies. Calling it twice is a no-op.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	t.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok && t.cfg != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.ShutdownTimeout.Duration())
		defer cancel()
	}

	var errs []error
	if t.tp != nil {
		if err := t.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if t.mp != nil {
		if err := t.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (t *Telemetry) problem(format string, args ...any) {
	t.mu.Lock()
	t.problems = append(t.problems, fmt.Sprintf(format, args...))
	t.mu.Unlock()
}
