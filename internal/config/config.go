// Package config provides configuration management for the fraud monitor.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "fraud-monitor/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Push    PushConfig    `mapstructure:"push"`
	Poll    PollConfig    `mapstructure:"poll"`
	Store   StoreConfig   `mapstructure:"store"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Log     LogConfig     `mapstructure:"log"`
}

// APIConfig holds settings for the remote fraud detection API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PushConfig holds websocket notification settings.
type PushConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"` // 0 = never reconnect
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
}

// PollConfig holds the fallback polling cadences.
type PollConfig struct {
	SummaryInterval time.Duration `mapstructure:"summary_interval"`
	DataInterval    time.Duration `mapstructure:"data_interval"`
}

// StoreConfig holds local window settings.
type StoreConfig struct {
	MaxItems int `mapstructure:"max_items"`
}

// AuditConfig holds command journal settings.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"` // sqlite, file
	Path    string `mapstructure:"path"`
}

// MetricsConfig holds Prometheus exporter settings.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// NotifyConfig holds new-alert notification settings for watch.
type NotifyConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Bell       bool          `mapstructure:"bell"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/fraud-monitor"
	}
	return filepath.Join(home, ".config", "fraud-monitor")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config file is replaced by a template and the defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v, DefaultConfigDir())
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 10*time.Second)

	v.SetDefault("push.enabled", true)
	v.SetDefault("push.reconnect_attempts", 0)
	v.SetDefault("push.reconnect_delay", time.Second)

	v.SetDefault("poll.summary_interval", 2*time.Second)
	v.SetDefault("poll.data_interval", 5*time.Second)

	v.SetDefault("store.max_items", 500)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.backend", "sqlite")
	v.SetDefault("audit.path", filepath.Join(configDir, "audit.db"))

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9108")

	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.bell", true)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", false)
	v.SetDefault("log.file_path", filepath.Join(configDir, "logs", "monitor.log"))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FRAUD_MONITOR_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("FRAUD_MONITOR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "api.base_url %q must be an http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "api.timeout must be positive")
	}
	if c.Poll.SummaryInterval <= 0 || c.Poll.DataInterval <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "poll intervals must be positive")
	}
	if c.Store.MaxItems < 1 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "store.max_items must be at least 1")
	}
	if c.Push.ReconnectAttempts < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "push.reconnect_attempts must be non-negative")
	}
	if c.Audit.Enabled && c.Audit.Backend != "sqlite" && c.Audit.Backend != "file" {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "audit.backend %q (must be 'sqlite' or 'file')", c.Audit.Backend)
	}
	if c.Notify.WebhookURL != "" {
		u, err := url.Parse(c.Notify.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "notify.webhook_url %q must be an http(s) URL", c.Notify.WebhookURL)
		}
	}
	return nil
}
