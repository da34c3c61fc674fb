package core

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestParseOptions_Overrides verifies YAML decoding over defaults
// Given: A document that sets some keys
// When: It is parsed
// Then: Set keys override defaults and missing keys keep them
func TestParseOptions_Overrides(t *testing.T) {
	data := []byte(`
name: ingest
inbox_capacity: 64
tick_interval: 5ms
recover_panics: true
`)

	opts, err := ParseOptions(data)
	if err != nil {
		t.Fatalf("ParseOptions() error = %v", err)
	}

	if opts.Name != "ingest" || opts.InboxCapacity != 64 {
		t.Errorf("Name = %q, InboxCapacity = %d, want ingest, 64", opts.Name, opts.InboxCapacity)
	}
	if opts.TickInterval != 5*time.Millisecond {
		t.Errorf("TickInterval = %v, want 5ms", opts.TickInterval)
	}
	if opts.HistoryCapacity != defaultTaskHistoryCapacity || opts.LogLevel != "info" {
		t.Errorf("defaults lost: HistoryCapacity = %d, LogLevel = %q", opts.HistoryCapacity, opts.LogLevel)
	}
	if !opts.RecoverPanics {
		t.Error("RecoverPanics = false, want true")
	}
}

// TestParseOptions_Invalid verifies rejection of malformed and negative values
func TestParseOptions_Invalid(t *testing.T) {
	for _, doc := range []string{
		"inbox_capacity: -1",
		"history_capacity: -5",
		"tick_interval: -1s",
		"name: [unterminated",
	} {
		if _, err := ParseOptions([]byte(doc)); err == nil {
			t.Errorf("ParseOptions(%q) error = nil, want error", doc)
		}
	}
}

// TestLoadOptions_File verifies loading from disk and conversion to RuntimeConfig
// Given: An options file with recover_panics enabled
// When: It is loaded and turned into a RuntimeConfig
// Then: The config carries the name, capacities and a logging panic handler
func TestLoadOptions_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coop.yaml")
	if err := os.WriteFile(path, []byte("name: files\nhistory_capacity: 7\nrecover_panics: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := LoadOptions(path)
	if err != nil {
		t.Fatalf("LoadOptions() error = %v", err)
	}
	cfg := opts.RuntimeConfig(&bytes.Buffer{})

	if cfg.Name != "files" || cfg.HistoryCapacity != 7 || cfg.InboxCapacity != defaultInboxCapacity {
		t.Errorf("cfg = %+v, want files/7/%d", cfg, defaultInboxCapacity)
	}
	if _, ok := cfg.PanicHandler.(*LoggingPanicHandler); !ok {
		t.Errorf("PanicHandler = %T, want *LoggingPanicHandler", cfg.PanicHandler)
	}

	if _, err := LoadOptions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadOptions(missing) error = nil, want error")
	}
}
