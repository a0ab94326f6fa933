package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/casegen/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	redactedKey     = "[REDACTED]"
	redactedPattern = "[REDACTED:pattern]"
)

// Secret logs a config.Secret as its length only. Used for the completion
// API key and tracker token when clients are built.
func Secret(key string, val config.Secret) zap.Field {
	return RedactedString(key, val.Value())
}

// RedactedString hides val but keeps its length, so "unset" and "set" are
// still distinguishable in logs.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// redactor holds the compiled RedactionConfig.
type redactor struct {
	keys     map[string]struct{}
	patterns []*regexp.Regexp
}

func newRedactor(cfg RedactionConfig) (redactor, error) {
	var r redactor
	if !cfg.Enabled {
		return r, nil
	}
	r.keys = make(map[string]struct{}, len(cfg.Fields))
	for _, f := range cfg.Fields {
		r.keys[strings.ToLower(f)] = struct{}{}
	}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return redactor{}, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

func (r redactor) empty() bool { return len(r.keys) == 0 && len(r.patterns) == 0 }

func (r redactor) hidesKey(key string) bool {
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}

// text returns the replacement for a string value, or ok=false to keep it.
func (r redactor) text(key, val string) (string, bool) {
	if r.hidesKey(key) {
		return redactedKey, true
	}
	for _, re := range r.patterns {
		if re.MatchString(val) {
			return redactedPattern, true
		}
	}
	return "", false
}

func (r redactor) field(f zapcore.Field) zapcore.Field {
	if f.Type == zapcore.StringType {
		if repl, ok := r.text(f.Key, f.String); ok {
			return zap.String(f.Key, repl)
		}
		return f
	}
	if r.hidesKey(f.Key) {
		return zap.String(f.Key, redactedKey)
	}
	return f
}

// RedactingEncoder masks sensitive keys and values before the wrapped
// encoder writes them. Story text and test-case bodies pass through
// unless they match a configured pattern.
type RedactingEncoder struct {
	zapcore.Encoder
	r redactor
}

// NewRedactingEncoder wraps base with the rules in cfg.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	r, err := newRedactor(cfg)
	if err != nil {
		return nil, err
	}
	return &RedactingEncoder{Encoder: base, r: r}, nil
}

// AddString covers fields attached with Logger.With.
func (e *RedactingEncoder) AddString(key, val string) {
	if repl, ok := e.r.text(key, val); ok {
		val = repl
	}
	e.Encoder.AddString(key, val)
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.r.hidesKey(key) {
		e.Encoder.AddString(key, redactedKey)
		return
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddReflected(key string, val any) error {
	if e.r.hidesKey(key) {
		e.Encoder.AddString(key, redactedKey)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.r.hidesKey(key) {
		e.Encoder.AddString(key, redactedKey)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

// EncodeEntry rewrites per-entry fields. The wrapped encoder adds them to
// its own clone, so the Add* overrides never see them.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if e.r.empty() {
		return e.Encoder.EncodeEntry(ent, fields)
	}
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		out[i] = e.r.field(f)
	}
	return e.Encoder.EncodeEntry(ent, out)
}

func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), r: e.r}
}
