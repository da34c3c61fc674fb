package core

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Options is the file form of a runtime configuration.
//
//	name: ingest
//	inbox_capacity: 4096
//	history_capacity: 200
//	tick_interval: 5ms
//	log_level: debug
//	log_format: json
//	recover_panics: true
type Options struct {
	Name            string        `yaml:"name"`
	InboxCapacity   int           `yaml:"inbox_capacity"`
	HistoryCapacity int           `yaml:"history_capacity"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	RecoverPanics   bool          `yaml:"recover_panics"`
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Name:            defaultRuntimeName,
		InboxCapacity:   defaultInboxCapacity,
		HistoryCapacity: defaultTaskHistoryCapacity,
		TickInterval:    10 * time.Millisecond,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// LoadOptions reads a YAML options file. Keys missing from the file keep
// their default values.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read options %s: %w", path, err)
	}
	opts, err := ParseOptions(data)
	if err != nil {
		return Options{}, fmt.Errorf("parse options %s: %w", path, err)
	}
	return opts, nil
}

// ParseOptions decodes YAML options on top of DefaultOptions.
func ParseOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, err
	}
	if opts.InboxCapacity < 0 {
		return Options{}, fmt.Errorf("inbox_capacity must not be negative, got %d", opts.InboxCapacity)
	}
	if opts.HistoryCapacity < 0 {
		return Options{}, fmt.Errorf("history_capacity must not be negative, got %d", opts.HistoryCapacity)
	}
	if opts.TickInterval < 0 {
		return Options{}, fmt.Errorf("tick_interval must not be negative, got %s", opts.TickInterval)
	}
	return opts, nil
}

// RuntimeConfig turns opts into a RuntimeConfig whose logs go to w
// (stderr when w is nil). Metrics are left to the caller.
func (o Options) RuntimeConfig(w io.Writer) *RuntimeConfig {
	cfg := DefaultRuntimeConfig()
	if o.Name != "" {
		cfg.Name = o.Name
	}
	if o.InboxCapacity > 0 {
		cfg.InboxCapacity = o.InboxCapacity
	}
	if o.HistoryCapacity > 0 {
		cfg.HistoryCapacity = o.HistoryCapacity
	}
	cfg.Logger = NewSlogLogger(ParseLogLevel(o.LogLevel), o.LogFormat, w)
	if o.RecoverPanics {
		cfg.PanicHandler = &LoggingPanicHandler{Logger: cfg.Logger}
	}
	return cfg
}
