// Package telemetry provides OpenTelemetry tracing and metrics for casegen.
//
// Telemetry is disabled by default. When enabled it exports spans and
// metrics over OTLP (gRPC or HTTP) to a collector:
//
//	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tracer := tel.Tracer("casegen/pipeline")
//	meter := tel.Meter("casegen/pipeline")
//
// Exporter failures never stop the process. The failed signal falls back to
// the global no-op provider and Status reports the instance as degraded.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
