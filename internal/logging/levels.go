package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug. Request and reply bodies of the
// completion service are logged at this level.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name, accepting "trace" and the upper-case
// spellings used by older deployments (INFO, WARNING).
func LevelFromString(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return TraceLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	case "critical":
		return zapcore.FatalLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}
