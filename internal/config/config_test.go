package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "fraud-monitor/internal/errors"
)

func TestLoadCreatesTemplateAndUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Errorf("expected template to be written: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.Poll.SummaryInterval != 2*time.Second {
		t.Errorf("summary_interval = %v", cfg.Poll.SummaryInterval)
	}
	if cfg.Poll.DataInterval != 5*time.Second {
		t.Errorf("data_interval = %v", cfg.Poll.DataInterval)
	}
	if cfg.Store.MaxItems != 500 {
		t.Errorf("max_items = %d", cfg.Store.MaxItems)
	}
	if cfg.Audit.Path != filepath.Join(dir, "audit.db") {
		t.Errorf("audit.path = %q", cfg.Audit.Path)
	}
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[api]
base_url = "https://fraud.example.com"
timeout = "3s"

[poll]
summary_interval = "500ms"
data_interval = "1s"

[store]
max_items = 50

[audit]
backend = "file"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://fraud.example.com" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.Poll.SummaryInterval != 500*time.Millisecond {
		t.Errorf("summary_interval = %v", cfg.Poll.SummaryInterval)
	}
	if cfg.Store.MaxItems != 50 {
		t.Errorf("max_items = %d", cfg.Store.MaxItems)
	}
	if cfg.Audit.Backend != "file" {
		t.Errorf("audit.backend = %q", cfg.Audit.Backend)
	}
	// Untouched sections keep their defaults.
	if !cfg.Push.Enabled {
		t.Error("push should default to enabled")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FRAUD_MONITOR_API_URL", "http://10.0.0.5:8000")
	t.Setenv("FRAUD_MONITOR_LOG_LEVEL", "debug")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://example.com" }},
		{"no host", func(c *Config) { c.API.BaseURL = "http://" }},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"zero summary interval", func(c *Config) { c.Poll.SummaryInterval = 0 }},
		{"negative data interval", func(c *Config) { c.Poll.DataInterval = -time.Second }},
		{"empty window", func(c *Config) { c.Store.MaxItems = 0 }},
		{"negative reconnects", func(c *Config) { c.Push.ReconnectAttempts = -1 }},
		{"unknown audit backend", func(c *Config) { c.Audit.Backend = "redis" }},
		{"bad webhook", func(c *Config) { c.Notify.WebhookURL = "hooks.example.com/x" }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !apperrors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}
