// Package config provides configuration loading for casegen.
//
// A Config is built once at startup by LoadWithFile and handed by pointer to
// every client constructor. Nothing in this module reads configuration from
// package-level state.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported provider names.
const (
	CompletionAzure  = "azure"
	CompletionOpenAI = "openai"
	CompletionGemini = "gemini"

	TrackerJira   = "jira"
	TrackerGitHub = "github"
)

// Config holds the complete casegen configuration.
type Config struct {
	Completion    CompletionConfig    `koanf:"completion"`
	Tracker       TrackerConfig       `koanf:"tracker"`
	Pipeline      PipelineConfig      `koanf:"pipeline"`
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	Secrets       SecretsConfig       `koanf:"secrets"`
}

// CompletionConfig selects and authenticates the language model endpoint.
type CompletionConfig struct {
	Provider   string `koanf:"provider"`
	Endpoint   string `koanf:"endpoint"`
	APIKey     Secret `koanf:"api_key"`
	Model      string `koanf:"model"`
	APIVersion string `koanf:"api_version"` // Azure only
	// RequestsPerMinute paces outbound completion calls. Zero disables pacing.
	RequestsPerMinute int `koanf:"requests_per_minute"`
}

// TrackerConfig selects and authenticates the issue tracker.
//
// For GitHub, ProjectKey is "owner/repo" and URL is only set for
// GitHub Enterprise.
type TrackerConfig struct {
	Provider   string `koanf:"provider"`
	URL        string `koanf:"url"`
	Email      string `koanf:"email"`
	APIToken   Secret `koanf:"api_token"`
	ProjectKey string `koanf:"project_key"`
	LinkType   string `koanf:"link_type"`
}

// PipelineConfig holds operational knobs.
type PipelineConfig struct {
	// MaxRetries is accepted for compatibility; no call is retried.
	MaxRetries   int      `koanf:"max_retries"`
	Timeout      Duration `koanf:"timeout"`
	LogLevel     string   `koanf:"log_level"`
	LogFormat    string   `koanf:"log_format"`
	QualityFloor float64  `koanf:"quality_floor"`
	BatchPause   Duration `koanf:"batch_pause"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig holds OpenTelemetry export settings.
type ObservabilityConfig struct {
	EnableTelemetry bool    `koanf:"enable_telemetry"`
	Endpoint        string  `koanf:"endpoint"`
	Protocol        string  `koanf:"protocol"` // grpc or http/protobuf
	Insecure        bool    `koanf:"insecure"`
	ServiceName     string  `koanf:"service_name"`
	SamplingRate    float64 `koanf:"sampling_rate"`
}

// SecretsConfig controls scrubbing of story text before it is sent to the
// completion service.
type SecretsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AllowlistPath string `koanf:"allowlist_path"`
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	cfg.Secrets.Enabled = true
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Completion.Provider == "" {
		cfg.Completion.Provider = CompletionAzure
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "gpt-4"
	}

	if cfg.Tracker.Provider == "" {
		cfg.Tracker.Provider = TrackerJira
	}
	if cfg.Tracker.ProjectKey == "" {
		cfg.Tracker.ProjectKey = "TEST"
	}
	if cfg.Tracker.LinkType == "" {
		cfg.Tracker.LinkType = "Tests"
	}

	if cfg.Pipeline.MaxRetries == 0 {
		cfg.Pipeline.MaxRetries = 3
	}
	if cfg.Pipeline.Timeout == 0 {
		cfg.Pipeline.Timeout = Duration(30 * time.Second)
	}
	if cfg.Pipeline.LogLevel == "" {
		cfg.Pipeline.LogLevel = "info"
	}
	cfg.Pipeline.LogLevel = strings.ToLower(cfg.Pipeline.LogLevel)
	if cfg.Pipeline.LogFormat == "" {
		cfg.Pipeline.LogFormat = "json"
	}
	if cfg.Pipeline.QualityFloor == 0 {
		cfg.Pipeline.QualityFloor = 6
	}
	if cfg.Pipeline.BatchPause == 0 {
		cfg.Pipeline.BatchPause = Duration(time.Second)
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9191
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Observability.Endpoint == "" {
		cfg.Observability.Endpoint = "localhost:4317"
	}
	if cfg.Observability.Protocol == "" {
		cfg.Observability.Protocol = "grpc"
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "casegen"
	}
	if cfg.Observability.SamplingRate == 0 {
		cfg.Observability.SamplingRate = 1.0
	}
}

// Validate validates the configuration.
//
// Credentials are not checked here: a missing key only matters once the
// matching client is constructed, and the constructor reports it.
func (c *Config) Validate() error {
	switch c.Completion.Provider {
	case CompletionAzure, CompletionOpenAI, CompletionGemini:
	default:
		return fmt.Errorf("unknown completion provider %q (want azure, openai or gemini)", c.Completion.Provider)
	}
	if c.Completion.RequestsPerMinute < 0 {
		return errors.New("completion.requests_per_minute must not be negative")
	}

	switch c.Tracker.Provider {
	case TrackerJira, TrackerGitHub:
	default:
		return fmt.Errorf("unknown tracker provider %q (want jira or github)", c.Tracker.Provider)
	}
	if c.Tracker.Provider == TrackerGitHub && strings.Count(c.Tracker.ProjectKey, "/") != 1 {
		return fmt.Errorf("tracker.project_key must be owner/repo for github, got %q", c.Tracker.ProjectKey)
	}

	if c.Pipeline.MaxRetries < 0 {
		return errors.New("pipeline.max_retries must not be negative")
	}
	if c.Pipeline.QualityFloor < 0 || c.Pipeline.QualityFloor > 10 {
		return fmt.Errorf("pipeline.quality_floor must be between 0 and 10, got %v", c.Pipeline.QualityFloor)
	}
	if c.Pipeline.LogFormat != "json" && c.Pipeline.LogFormat != "console" {
		return fmt.Errorf("pipeline.log_format must be 'json' or 'console', got %q", c.Pipeline.LogFormat)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	if c.Observability.SamplingRate < 0 || c.Observability.SamplingRate > 1 {
		return fmt.Errorf("observability.sampling_rate must be between 0 and 1, got %v", c.Observability.SamplingRate)
	}

	return nil
}
