// Package cli provides the command-line interface for the fraud monitor.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fraud-monitor/internal/audit"
	"fraud-monitor/internal/config"
	"fraud-monitor/internal/gateway"
	"fraud-monitor/internal/logging"
	"fraud-monitor/internal/push"
	"fraud-monitor/internal/session"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-01-01"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Gateway gateway.Gateway

	recorder audit.Recorder
}

// NewApp builds the dependencies shared by all commands.
func NewApp(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	app := &App{}
	if err := app.init(cfg, logger); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) init(cfg *config.Config, logger zerolog.Logger) error {
	client, err := gateway.NewClient(gateway.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating API client: %w", err)
	}
	a.Config = cfg
	a.Logger = logger
	a.Gateway = client
	return nil
}

// Recorder opens the audit journal on first use. A journal that cannot be
// opened is logged and replaced by a no-op so commands still run.
func (a *App) Recorder() audit.Recorder {
	if a.recorder != nil {
		return a.recorder
	}
	a.recorder = audit.Nop{}
	if !a.Config.Audit.Enabled {
		return a.recorder
	}
	rec, err := audit.Open(a.Config.Audit.Backend, a.Config.Audit.Path)
	if err != nil {
		a.Logger.Warn().Err(err).Str("backend", a.Config.Audit.Backend).Msg("Audit journal unavailable")
		return a.recorder
	}
	a.recorder = rec
	return a.recorder
}

// Close releases resources opened by commands.
func (a *App) Close() error {
	if a.recorder == nil {
		return nil
	}
	err := a.recorder.Close()
	a.recorder = nil
	return err
}

// SessionConfig derives the session settings from the loaded configuration.
func (a *App) SessionConfig() (session.Config, error) {
	cfg := session.DefaultConfig(a.Gateway)
	cfg.SummaryInterval = a.Config.Poll.SummaryInterval
	cfg.DataInterval = a.Config.Poll.DataInterval
	cfg.MaxItems = a.Config.Store.MaxItems
	cfg.ReconnectAttempts = a.Config.Push.ReconnectAttempts
	cfg.ReconnectDelay = a.Config.Push.ReconnectDelay
	cfg.HandshakeTimeout = a.Config.API.Timeout
	cfg.Recorder = a.Recorder()
	cfg.Logger = a.Logger

	if a.Config.Push.Enabled {
		url, err := push.URLFromBase(a.Config.API.BaseURL)
		if err != nil {
			return cfg, fmt.Errorf("deriving push URL: %w", err)
		}
		cfg.PushURL = url
	}
	return cfg, nil
}

// NewRootCmd creates the root command for the CLI. When app is nil the
// configuration is loaded from the --config directory before any command
// runs.
func NewRootCmd(app *App) *cobra.Command {
	preloaded := app != nil
	if app == nil {
		app = &App{}
	}

	rootCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Fraud monitor - live view of transactions and fraud alerts",
		Long: `Fraud monitor keeps a live, bounded view of transactions, fraud alerts and
summary statistics from the fraud detection API.

It listens for push notifications and falls back to polling, and lets an
operator submit transactions and review alerts.

Use 'monitor help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if preloaded {
				if debug {
					app.Logger = app.Logger.Level(zerolog.DebugLevel)
				}
				return nil
			}

			cfg, err := config.Load(configDir(cmd))
			if err != nil {
				return err
			}
			logger := NewLogger(cfg)
			if debug {
				logger = logger.Level(zerolog.DebugLevel)
			}
			return app.init(cfg, logger)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/fraud-monitor)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addMonitoringCommands(rootCmd, app)
	addTransactionCommands(rootCmd, app)
	addAlertCommands(rootCmd, app)
	addHistoryCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Fraud Monitor v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir := configDir(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func configDir(cmd *cobra.Command) string {
	if dir, _ := cmd.Flags().GetString("config"); dir != "" {
		return dir
	}
	return config.DefaultConfigDir()
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("API")
	output.Printf("  Base URL:         %s\n", cfg.API.BaseURL)
	output.Printf("  Timeout:          %s\n", cfg.API.Timeout)
	output.Println()

	output.Bold("Push")
	output.Printf("  Enabled:          %v\n", cfg.Push.Enabled)
	output.Printf("  Reconnects:       %d\n", cfg.Push.ReconnectAttempts)
	output.Printf("  Reconnect Delay:  %s\n", cfg.Push.ReconnectDelay)
	output.Println()

	output.Bold("Polling")
	output.Printf("  Summary Interval: %s\n", cfg.Poll.SummaryInterval)
	output.Printf("  Data Interval:    %s\n", cfg.Poll.DataInterval)
	output.Printf("  Window Size:      %d\n", cfg.Store.MaxItems)
	output.Println()

	output.Bold("Audit")
	output.Printf("  Enabled:          %v\n", cfg.Audit.Enabled)
	output.Printf("  Backend:          %s\n", cfg.Audit.Backend)
	output.Printf("  Path:             %s\n", cfg.Audit.Path)
	output.Println()

	output.Bold("Metrics")
	output.Printf("  Enabled:          %v\n", cfg.Metrics.Enabled)
	output.Printf("  Listen Address:   %s\n", cfg.Metrics.ListenAddr)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:          %v\n", cfg.Notify.Enabled)
	output.Printf("  Bell:             %v\n", cfg.Notify.Bell)
	if cfg.Notify.WebhookURL != "" {
		output.Printf("  Webhook:          %s\n", cfg.Notify.WebhookURL)
	}
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:            %s\n", cfg.Log.Level)
	output.Printf("  File:             %v\n", cfg.Log.File)
	if cfg.Log.File {
		output.Printf("  File Path:        %s\n", cfg.Log.FilePath)
	}
}

// NewLogger builds the application logger from configuration.
func NewLogger(cfg *config.Config) zerolog.Logger {
	logCfg := logging.DefaultLogConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Console = cfg.Log.Console
	logCfg.File = cfg.Log.File
	logCfg.FilePath = cfg.Log.FilePath
	return logging.NewLoggerWithConfig(logCfg)
}
