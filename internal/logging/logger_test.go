package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"signagerec/internal/config"
	"signagerec/internal/logging"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg, "")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "orchestrator")
	logger.Info("capture finished", logging.Int("duration_seconds", 15), logging.Error(errors.New("boom")))

	content, err := os.ReadFile(cfg.LogFilePath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", content, err)
	}
	if entry["msg"] != "capture finished" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Fatalf("unexpected level: %v", entry["level"])
	}
	if entry[logging.FieldComponent] != "orchestrator" {
		t.Fatalf("unexpected component: %v", entry[logging.FieldComponent])
	}
	if entry[logging.FieldError] != "boom" {
		t.Fatalf("expected error rendered as string, got %v", entry[logging.FieldError])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatal("expected ts key")
	}
}

func TestConsoleLoggerHeaderCarriesRunAndComponent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithRunID(context.Background(), "0f3c2a9e-1111-2222-3333-444455556666")
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "capture"))
	logger.Info("encoder started", logging.String("display", ":99"), logging.String("note", "two words"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO  [0f3c2a9e] capture: encoder started") {
		t.Fatalf("unexpected header: %q", line)
	}
	if !strings.Contains(line, "display=:99") || !strings.Contains(line, `note="two words"`) {
		t.Fatalf("unexpected fields: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestRunIDFromContext(t *testing.T) {
	if _, ok := logging.RunIDFromContext(context.Background()); ok {
		t.Fatal("expected no run id on empty context")
	}
	ctx := logging.WithRunID(context.Background(), "run-1")
	id, ok := logging.RunIDFromContext(ctx)
	if !ok || id != "run-1" {
		t.Fatalf("unexpected run id %q (ok=%v)", id, ok)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("expected nop logger to be disabled at every level")
	}
	logging.WarnWithHint(nil, "ignored", "x", "y")
}
