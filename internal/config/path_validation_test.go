package config

import (
	"path/filepath"
	"testing"
)

func TestValidateConfigPath_RejectsPathTraversal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		name string
		path string
	}{
		{"sibling with shared prefix", "/etc/casegen../etc/passwd"},
		{"multiple escapes", filepath.Join(home, ".config", "casegen", "..", "..", "..", "etc", "passwd")},
		{"directory itself", "/etc/casegen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateConfigPath(tt.path); err == nil {
				t.Errorf("Expected error for path traversal attempt: %s", tt.path)
			}
		})
	}
}

func TestValidateConfigPath_AllowsValidPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	validPaths := []string{
		filepath.Join(home, ".config", "casegen", "config.yaml"),
		filepath.Join(home, ".config", "casegen", "subdir", "config.yaml"),
		"/etc/casegen/config.yaml",
		"/etc/casegen/production/config.yaml",
	}

	for _, path := range validPaths {
		t.Run(path, func(t *testing.T) {
			if err := validateConfigPath(path); err != nil {
				t.Errorf("Valid path rejected: %s, error: %v", path, err)
			}
		})
	}
}

func TestValidateConfigPath_RejectsOutsideAllowedDirs(t *testing.T) {
	invalidPaths := []string{
		"/etc/passwd",
		"/tmp/config.yaml",
		"/var/lib/casegen/config.yaml",
	}

	for _, path := range invalidPaths {
		t.Run(path, func(t *testing.T) {
			if err := validateConfigPath(path); err == nil {
				t.Errorf("Path outside allowed directories should be rejected: %s", path)
			}
		})
	}
}
