package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogRefreshFailureIsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithConfig(LogConfig{Level: "debug", Output: &buf})

	LogRefresh(logger, "alerts", 0, errors.New("connection refused"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["target"] != "alerts" {
		t.Errorf("target = %v", entry["target"])
	}
	if entry["error"] != "connection refused" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithConfig(LogConfig{Level: "info", Output: &buf})

	LogRefresh(logger, "summary", 1, nil)

	if buf.Len() != 0 {
		t.Errorf("expected debug line to be filtered, got %q", buf.String())
	}
}

func TestFileWriter(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "monitor.log")
	logger := NewLoggerWithConfig(LogConfig{
		Level:    "info",
		File:     true,
		FilePath: path,
		MaxSize:  1,
		Output:   &buf,
	})
	logger.Info().Msg("hello")

	if buf.Len() != 0 {
		t.Error("file-only logger should not write to output")
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(NewLoggerWithConfig(LogConfig{Output: &buf}), "store")
	ctx := WithLogger(context.Background(), logger)

	l := FromContext(ctx, zerolog.Nop())
	l.Info().Msg("x")
	if !bytes.Contains(buf.Bytes(), []byte(`"component":"store"`)) {
		t.Errorf("missing component field: %s", buf.String())
	}

	var fallbackBuf bytes.Buffer
	fallback := zerolog.New(&fallbackBuf)
	l = FromContext(context.Background(), fallback)
	l.Info().Msg("fallback")
	if !bytes.Contains(fallbackBuf.Bytes(), []byte("fallback")) {
		t.Error("fallback logger not used for a bare context")
	}
}

func TestWithOperationTagsAPICalls(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	LogAPICall(WithOperation(logger, "get_summary"), "GET", "/api/transactions/stats", 5*time.Millisecond, nil)
	for _, want := range []string{`"operation":"get_summary"`, `"event":"api_call"`, `"endpoint":"/api/transactions/stats"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("missing %s in %s", want, buf.String())
		}
	}
}
