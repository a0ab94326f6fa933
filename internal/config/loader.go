package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
	appDir            = "casegen"
)

// legacyEnv maps the variable names used by earlier deployments onto
// config keys. Canonical SECTION_FIELD names take precedence.
var legacyEnv = map[string]string{
	"AZURE_AI_ENDPOINT": "completion.endpoint",
	"AZURE_AI_KEY":      "completion.api_key",
	"AZURE_AI_MODEL":    "completion.model",
	"JIRA_URL":          "tracker.url",
	"JIRA_EMAIL":        "tracker.email",
	"JIRA_API_TOKEN":    "tracker.api_token",
	"JIRA_PROJECT_KEY":  "tracker.project_key",
	"LOG_LEVEL":         "pipeline.log_level",
}

var sections = map[string]bool{
	"completion":    true,
	"tracker":       true,
	"pipeline":      true,
	"server":        true,
	"observability": true,
	"secrets":       true,
}

// LoadWithFile loads configuration from a YAML file, then overrides it with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (TRACKER_PROJECT_KEY, COMPLETION_MODEL, etc.)
//  2. Legacy environment variables (JIRA_PROJECT_KEY, AZURE_AI_MODEL, etc.)
//  3. YAML config file (~/.config/casegen/config.yaml)
//  4. Hardcoded defaults
//
// An empty configPath selects the default path. A missing file is not an
// error.
//
// # Security Considerations
//
// The file must live under ~/.config/casegen/ or /etc/casegen/, have 0600 or
// 0400 permissions and be at most 1MB.
//
// # Environment Variable Mapping
//
// Variables split on the first underscore into section and field:
//
//	TRACKER_PROJECT_KEY -> tracker.project_key
//	PIPELINE_BATCH_PAUSE -> pipeline.batch_pause
//
// Variables whose first segment is not a config section are ignored.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Set("secrets.enabled", true); err != nil {
		return nil, fmt.Errorf("failed to seed defaults: %w", err)
	}

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", appDir, "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", legacyKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load legacy environment variables: %w", err)
	}
	if err := k.Load(env.Provider("", ".", sectionKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				durationSecondsHook,
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

var durationType = reflect.TypeOf(Duration(0))

// durationSecondsHook decodes numeric YAML values into Duration as seconds,
// so "timeout: 30" means 30s.
func durationSecondsHook(_, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return seconds(float64(v))
	case int64:
		return seconds(float64(v))
	case uint64:
		return seconds(float64(v))
	case float64:
		return seconds(v)
	}
	return data, nil
}

// legacyKey returns the config key for a legacy variable, or "" so koanf
// skips it.
func legacyKey(s string) string {
	return legacyEnv[s]
}

// sectionKey maps SECTION_FIELD_NAME to section.field_name, splitting on the
// first underscore only.
func sectionKey(s string) string {
	if _, ok := legacyEnv[s]; ok {
		return ""
	}
	parts := strings.SplitN(strings.ToLower(s), "_", 2)
	if len(parts) != 2 || !sections[parts[0]] {
		return ""
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile opens the file once and validates through the open
// descriptor.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// EnsureConfigDir creates ~/.config/casegen with 0700 permissions.
func EnsureConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", appDir)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return configDir, nil
}

// validateConfigPath checks that path is inside an allowed directory. It runs
// even when the file does not exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", appDir),
		filepath.Join(string(filepath.Separator), "etc", appDir),
	}

	for _, dir := range allowedDirs {
		if strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("config file must be in ~/.config/%s/ or /etc/%s/", appDir, appDir)
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}
