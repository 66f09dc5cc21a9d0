// Package logging builds the zerolog logger and the event helpers shared by
// the sync engine.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig selects where monitor logs go. Console output is human
// readable; the file sink is JSON rotated by lumberjack.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Output     io.Writer
}

func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		FilePath:   filepath.Join(home, ".config", "fraud-monitor", "logs", "monitor.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

var levelBadges = map[string]string{
	"debug": "\033[36mDBG\033[0m",
	"info":  "\033[32mINF\033[0m",
	"warn":  "\033[33mWRN\033[0m",
	"error": "\033[31mERR\033[0m",
}

func levelBadge(i interface{}) string {
	ll, ok := i.(string)
	if !ok {
		return "???"
	}
	if b, ok := levelBadges[ll]; ok {
		return b
	}
	return ll
}

// NewLoggerWithConfig builds the process logger. With no sink enabled it
// writes JSON to cfg.Output (stderr by default). A log directory that
// cannot be created silently disables the file sink.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var sinks []io.Writer
	if cfg.Console {
		sinks = append(sinks, zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, FormatLevel: levelBadge})
	}
	if cfg.File && os.MkdirAll(filepath.Dir(cfg.FilePath), 0755) == nil {
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   true,
		})
	}

	var w io.Writer = out
	switch len(sinks) {
	case 0:
	case 1:
		w = sinks[0]
	default:
		w = zerolog.MultiLevelWriter(sinks...)
	}
	return zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

// ParseLevel maps debug, info, warn and error to zerolog levels. Anything
// else, including the empty string, is info.
func ParseLevel(level string) zerolog.Level {
	switch l, err := zerolog.ParseLevel(level); {
	case err != nil, level == "":
		return zerolog.InfoLevel
	case l < zerolog.DebugLevel, l > zerolog.ErrorLevel:
		return zerolog.InfoLevel
	default:
		return l
	}
}

type contextKey string

// LoggerKey carries a request-scoped logger through a context.
const LoggerKey contextKey = "logger"

// WithLogger returns ctx carrying logger. Gateway calls made with ctx log
// through it, so a command's fields follow its API calls.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger stored by WithLogger, or fallback.
func FromContext(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return fallback
}

// WithComponent names the subsystem a logger belongs to.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// WithOperation tags logger with the API operation being performed.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogAPICall logs one gateway request at debug level.
func LogAPICall(logger zerolog.Logger, method, endpoint string, duration time.Duration, err error) {
	msg := "API call completed"
	if err != nil {
		msg = "API call failed"
	}
	logger.Debug().
		Str("event", "api_call").
		Str("method", method).
		Str("endpoint", endpoint).
		Dur("duration", duration).
		Err(err).
		Msg(msg)
}

// LogRefresh logs the outcome of a background refresh. Failures are warnings
// because the next poll tick retries on its own.
func LogRefresh(logger zerolog.Logger, target string, items int, err error) {
	if err != nil {
		logger.Warn().
			Str("event", "refresh").
			Str("target", target).
			Err(err).
			Msg("Refresh failed")
		return
	}
	logger.Debug().
		Str("event", "refresh").
		Str("target", target).
		Int("items", items).
		Msg("Refresh applied")
}

// LogNotification logs a routed push notification.
func LogNotification(logger zerolog.Logger, kind string, actions []string) {
	logger.Debug().
		Str("event", "notification").
		Str("type", kind).
		Strs("actions", actions).
		Msg("Notification routed")
}

// LogCommand logs a user-initiated command.
func LogCommand(logger zerolog.Logger, command, target string, err error) {
	if err != nil {
		logger.Error().
			Str("event", "command").
			Str("command", command).
			Str("target", target).
			Err(err).
			Msg("Command failed")
		return
	}
	logger.Info().
		Str("event", "command").
		Str("command", command).
		Str("target", target).
		Msg("Command completed")
}
