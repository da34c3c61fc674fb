package core

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"strings"
	"testing"
)

// TestSlogLogger_JSON verifies structured output through slog
// Given: A JSON slog logger at info level writing to a buffer
// When: Debug and Info messages with fields are logged
// Then: Only the info line is written, carrying its fields
func TestSlogLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.LevelInfo, "json", &buf)

	logger.Debug("hidden", F("k", 1))
	logger.Info("task spawned", F("runtime", "test"), F("steps", 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON line %q: %v", lines[0], err)
	}
	if entry["msg"] != "task spawned" || entry["runtime"] != "test" || entry["steps"] != float64(3) {
		t.Errorf("entry = %v, want msg/runtime/steps fields", entry)
	}
}

// TestSlogLogger_Text verifies the text handler
func TestSlogLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.LevelDebug, "text", &buf)

	logger.Warn("task rejected", F("reason", "channel closed"))

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `reason="channel closed"`) {
		t.Errorf("output = %q, want level and reason", out)
	}
}

// TestParseLogLevel verifies level parsing with an info fallback
func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// TestRuntime_LogsPanicThroughLogger verifies LoggingPanicHandler output
// Given: A runtime whose panics are recovered into a slog logger
// When: A computation panics
// Then: An error line names the task and the panic value
func TestRuntime_LogsPanicThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.LevelError, "text", &buf)
	rt := NewRuntimeWithConfig(&RuntimeConfig{
		Logger:       logger,
		PanicHandler: &LoggingPanicHandler{Logger: logger},
	})

	rt.SpawnNamed("exploder", ComputationFunc(func(n Notifier) Status { panic("kaboom") }))
	rt.Drain()

	out := buf.String()
	if !strings.Contains(out, "computation panic recovered") || !strings.Contains(out, "task=exploder") || !strings.Contains(out, "panic=kaboom") {
		t.Errorf("output = %q, want panic record", out)
	}
	if got := rt.Stats().Panicked; got != 1 {
		t.Errorf("Panicked = %d, want 1", got)
	}
}

// TestDefaultLogger_Format verifies the std log rendering of fields
func TestDefaultLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	NewDefaultLogger().Info("runtime closed", F("runtime", "test"), F("abandoned", 2))

	if !strings.Contains(buf.String(), "[INFO] runtime closed {runtime: test, abandoned: 2}") {
		t.Errorf("output = %q, want formatted fields", buf.String())
	}
}
