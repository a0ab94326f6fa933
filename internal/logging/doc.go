// Package logging provides structured logging for casegen.
//
// Logger wraps Zap with ctx-first methods. Every entry picks up the run ID,
// the request ID and the active trace/span from the context, so one story's
// generation, assessment and publishing can be followed end to end:
//
//	ctx = logging.WithRunID(ctx, uuid.NewString())
//	logger.Info(ctx, "generated test cases", zap.Int("count", n))
//
// Output goes to stderr. Standard output is reserved for reports and for the
// MCP stdio transport.
//
// # Secret Redaction
//
// Field names such as api_token or authorization are redacted by the
// encoder. Values of type config.Secret should be logged with Secret.
//
// # Sampling
//
// Below-error entries are sampled per tick; errors are never sampled.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Warn(ctx, "low quality test case")
//	tl.AssertLogged(t, zapcore.WarnLevel, "low quality")
package logging
