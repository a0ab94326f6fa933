package logging

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records entries in memory. Every level, including trace, is
// kept.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger returns a Logger backed by an in-memory observer.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{
		Logger: &Logger{zap: zap.New(core)},
		logs:   logs,
	}
}

// All returns every recorded entry.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.logs.All()
}

// FilterMessage returns the entries whose message contains snippet.
func (t *TestLogger) FilterMessage(snippet string) *observer.ObservedLogs {
	return t.logs.FilterMessageSnippet(snippet)
}

// Reset drops every recorded entry.
func (t *TestLogger) Reset() {
	t.logs.TakeAll()
}

func (t *TestLogger) find(level zapcore.Level, snippet string) []observer.LoggedEntry {
	var out []observer.LoggedEntry
	for _, e := range t.logs.All() {
		if e.Level == level && strings.Contains(e.Message, snippet) {
			out = append(out, e)
		}
	}
	return out
}

// AssertLogged fails tb unless an entry at level contains snippet.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	if len(t.find(level, snippet)) == 0 {
		tb.Errorf("no %s entry containing %q; recorded:\n%s", level, snippet, t.summary())
	}
}

// AssertNotLogged fails tb if an entry at level contains snippet.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	if n := len(t.find(level, snippet)); n > 0 {
		tb.Errorf("%d unexpected %s entries containing %q", n, level, snippet)
	}
}

// AssertField fails tb unless an entry containing snippet carries key=want.
func (t *TestLogger) AssertField(tb testing.TB, snippet, key string, want any) {
	tb.Helper()
	for _, e := range t.logs.FilterMessageSnippet(snippet).All() {
		if got, ok := e.ContextMap()[key]; ok && reflect.DeepEqual(got, want) {
			return
		}
	}
	tb.Errorf("no entry containing %q with %s=%v; recorded:\n%s", snippet, key, want, t.summary())
}

// AssertRunID fails tb unless every entry containing snippet carries a run
// ID. Pipeline entries must be attributable to one story run.
func (t *TestLogger) AssertRunID(tb testing.TB, snippet string) {
	tb.Helper()
	entries := t.logs.FilterMessageSnippet(snippet).All()
	if len(entries) == 0 {
		tb.Errorf("no entry containing %q", snippet)
		return
	}
	for _, e := range entries {
		if id, _ := e.ContextMap()["run.id"].(string); id == "" {
			tb.Errorf("entry %q has no run.id", e.Message)
		}
	}
}

func (t *TestLogger) summary() string {
	var b strings.Builder
	for _, e := range t.logs.All() {
		fmt.Fprintf(&b, "  %s %s\n", e.Level, e.Message)
	}
	return b.String()
}
