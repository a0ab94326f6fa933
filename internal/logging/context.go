package logging

import (
	"context"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxID names a correlation ID carried on a context. Its value is the log
// field key.
type ctxID string

const (
	runIDKey     ctxID = "run.id"
	requestIDKey ctxID = "request.id"
)

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ContextFields returns the trace and correlation fields found on ctx, in
// the order trace, run, request.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	for _, key := range []ctxID{runIDKey, requestIDKey} {
		if id := idFrom(ctx, key); id != "" {
			fields = append(fields, zap.String(string(key), id))
		}
	}
	return fields
}

// WithRunID tags ctx with the ID of one pipeline run: a single story, or
// one entry of a batch. It panics on an ID that IsValidID rejects.
func WithRunID(ctx context.Context, id string) context.Context {
	return withID(ctx, runIDKey, id)
}

// RunIDFromContext returns the run ID on ctx, or "".
func RunIDFromContext(ctx context.Context) string { return idFrom(ctx, runIDKey) }

// WithRequestID tags ctx with an HTTP or MCP request ID. It panics on an ID
// that IsValidID rejects.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withID(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID on ctx, or "".
func RequestIDFromContext(ctx context.Context) string { return idFrom(ctx, requestIDKey) }

// IsValidID reports whether id is non-empty, at most 128 bytes and made of
// letters, digits, hyphens and underscores.
func IsValidID(id string) bool {
	return checkID(id) == nil
}

func checkID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("empty id")
	case len(id) > maxIDLen:
		return fmt.Errorf("id longer than %d bytes", maxIDLen)
	case !idPattern.MatchString(id):
		return fmt.Errorf("id %q has characters outside [a-zA-Z0-9_-]", id)
	}
	return nil
}

func withID(ctx context.Context, key ctxID, id string) context.Context {
	if err := checkID(id); err != nil {
		panic(fmt.Sprintf("logging: %s: %v", key, err))
	}
	return context.WithValue(ctx, key, id)
}

func idFrom(ctx context.Context, key ctxID) string {
	id, _ := ctx.Value(key).(string)
	return id
}
