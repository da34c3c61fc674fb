package coop

import "github.com/Swind/go-coop/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the coop package for most use cases.

// Computation is a suspendable unit of work.
type Computation = core.Computation

// ComputationFunc adapts a function to a Computation.
type ComputationFunc = core.ComputationFunc

// Status is the outcome of one step.
type Status = core.Status

// Notifier wakes the task it is bound to.
type Notifier = core.Notifier

// Runtime drives tasks on its owner's goroutine.
type Runtime = core.Runtime

// RuntimeConfig configures a Runtime.
type RuntimeConfig = core.RuntimeConfig

// Spawner is a shareable sending end of a runtime's inbox.
type Spawner = core.Spawner

// Signal is a one-shot event tasks can await.
type Signal = core.Signal

// Options is the YAML form of a RuntimeConfig.
type Options = core.Options

// Step outcomes
const (
	Suspended = core.Suspended
	Completed = core.Completed
)

// ErrChannelClosed is returned by spawns after the runtime was closed.
var ErrChannelClosed = core.ErrChannelClosed

// Computation builders
var (
	Do       = core.Do
	YieldNow = core.YieldNow
	Sleep    = core.Sleep
	Chain    = core.Chain
)

// NewRuntime creates a Runtime with default configuration.
func NewRuntime() *Runtime {
	return core.NewRuntime()
}

// NewRuntimeWithConfig creates a Runtime from cfg.
func NewRuntimeWithConfig(cfg *RuntimeConfig) *Runtime {
	return core.NewRuntimeWithConfig(cfg)
}
