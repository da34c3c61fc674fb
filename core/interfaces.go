package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling computation panics
// =============================================================================

// PanicHandler receives panics raised by a computation during a step.
//
// Without a PanicHandler a panic propagates to whoever drove the step
// (Tick, Drain, BlockOn). With one configured, the failing task is dropped,
// the panic is handed to the handler and the runtime keeps going.
type PanicHandler interface {
	// HandlePanic is called once per failed task.
	//
	// Parameters:
	// - runtimeName: The name of the runtime that stepped the task
	// - taskID: The failed task
	// - taskName: The resolved name of the failed task
	// - panicInfo: The recovered panic value
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(runtimeName string, taskID TaskID, taskName string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler prints panic information to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(runtimeName string, taskID TaskID, taskName string, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Runtime %s] Task %s (%s) panic: %v\nStack trace:\n%s",
		runtimeName, taskName, taskID, panicInfo, stackTrace)
}

// LoggingPanicHandler reports panics through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic at error level.
func (h *LoggingPanicHandler) HandlePanic(runtimeName string, taskID TaskID, taskName string, panicInfo any, stackTrace []byte) {
	if h.Logger == nil {
		return
	}
	h.Logger.Error("computation panic recovered",
		F("runtime", runtimeName),
		F("task", taskName),
		F("id", taskID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)))
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics collects runtime execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called on the runtime's goroutine and must not block.
type Metrics interface {
	// RecordStepDuration records how long one step took and how it ended.
	RecordStepDuration(runtimeName string, status Status, duration time.Duration)

	// RecordTaskPanic records that a computation panicked during a step.
	RecordTaskPanic(runtimeName string, panicInfo any)

	// RecordQueueDepth records the ReadyQueue length after a tick.
	RecordQueueDepth(runtimeName string, depth int)

	// RecordTimersPending records how many tasks wait in the TimerWheel.
	RecordTimersPending(runtimeName string, pending int)

	// RecordTaskRejected records that a spawn was refused.
	RecordTaskRejected(runtimeName string, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordStepDuration(runtimeName string, status Status, duration time.Duration) {
}

func (m *NilMetrics) RecordTaskPanic(runtimeName string, panicInfo any) {
}

func (m *NilMetrics) RecordQueueDepth(runtimeName string, depth int) {
}

func (m *NilMetrics) RecordTimersPending(runtimeName string, pending int) {
}

func (m *NilMetrics) RecordTaskRejected(runtimeName string, reason string) {
}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected spawns
// =============================================================================

// RejectedTaskHandler is called when a spawn is refused because the runtime's
// inbox has been torn down.
//
// Implementations should be thread-safe as spawns may come from any goroutine.
type RejectedTaskHandler interface {
	HandleRejectedTask(runtimeName string, taskName string, reason string)
}

// DefaultRejectedTaskHandler provides a basic handler that prints rejected tasks.
type DefaultRejectedTaskHandler struct{}

// HandleRejectedTask prints the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(runtimeName string, taskName string, reason string) {
	fmt.Printf("[Runtime %s] Task %s rejected: %s\n", runtimeName, taskName, reason)
}

// =============================================================================
// RuntimeConfig: Configuration for Runtime
// =============================================================================

const (
	defaultRuntimeName   = "coop"
	defaultInboxCapacity = 1024
)

// RuntimeConfig holds configuration options for a Runtime.
// Zero values and nil handlers are replaced by defaults.
type RuntimeConfig struct {
	// Name labels logs, metrics and history records. Defaults to "coop".
	Name string

	// InboxCapacity is the buffer size of the spawn channel. Spawn blocks
	// while the inbox is full. Defaults to 1024.
	InboxCapacity int

	// HistoryCapacity bounds the completed-task history. Defaults to 100.
	HistoryCapacity int

	// PanicHandler recovers computation panics. Nil means panics propagate.
	PanicHandler PanicHandler

	// Metrics is called to record execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a spawn is refused. Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler

	// Logger receives runtime lifecycle logs. Defaults to NoOpLogger.
	Logger Logger

	// Clock returns the current time for deadlines. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultRuntimeConfig returns a config with default handlers.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		Name:                defaultRuntimeName,
		InboxCapacity:       defaultInboxCapacity,
		HistoryCapacity:     defaultTaskHistoryCapacity,
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{},
		Logger:              NewNoOpLogger(),
		Clock:               time.Now,
	}
}

func (c *RuntimeConfig) withDefaults() RuntimeConfig {
	var out RuntimeConfig
	if c != nil {
		out = *c
	}
	if out.Name == "" {
		out.Name = defaultRuntimeName
	}
	if out.InboxCapacity <= 0 {
		out.InboxCapacity = defaultInboxCapacity
	}
	if out.HistoryCapacity <= 0 {
		out.HistoryCapacity = defaultTaskHistoryCapacity
	}
	if out.Metrics == nil {
		out.Metrics = &NilMetrics{}
	}
	if out.RejectedTaskHandler == nil {
		out.RejectedTaskHandler = &DefaultRejectedTaskHandler{}
	}
	if out.Logger == nil {
		out.Logger = NewNoOpLogger()
	}
	if out.Clock == nil {
		out.Clock = time.Now
	}
	return out
}
