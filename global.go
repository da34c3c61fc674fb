package coop

import (
	"sync"
	"time"

	"github.com/Swind/go-coop/core"
)

// =============================================================================
// Global Runtime Helper (Singleton)
// =============================================================================

var (
	globalRuntime *core.Runtime
	globalMu      sync.Mutex
)

// InitGlobalRuntime creates the global runtime. A nil cfg uses defaults.
// Calling it again before ShutdownGlobalRuntime has no effect.
func InitGlobalRuntime(cfg *core.RuntimeConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime != nil {
		return // Already initialized
	}

	if cfg == nil {
		cfg = core.DefaultRuntimeConfig()
		cfg.Name = "global"
	}
	globalRuntime = core.NewRuntimeWithConfig(cfg)
}

// GlobalRuntime returns the global runtime instance.
// It panics if InitGlobalRuntime has not been called.
func GlobalRuntime() *core.Runtime {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime == nil {
		panic("GlobalRuntime not initialized. Call InitGlobalRuntime() first.")
	}
	return globalRuntime
}

// ShutdownGlobalRuntime closes the global runtime, abandoning pending tasks.
func ShutdownGlobalRuntime() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime != nil {
		globalRuntime.Close()
		globalRuntime = nil
	}
}

// Spawn sends c to the global runtime.
func Spawn(c Computation) error {
	return GlobalRuntime().Spawn(c)
}

// SpawnAfter defers c on the global runtime. Call it from the goroutine
// driving the global runtime.
func SpawnAfter(c Computation, delay time.Duration) {
	GlobalRuntime().SpawnAfter(c, delay)
}

// BlockOn runs c on the global runtime until no task is live.
func BlockOn(c Computation) error {
	return GlobalRuntime().BlockOn(c)
}

// Tick performs one non-blocking tick of the global runtime.
func Tick() {
	GlobalRuntime().Tick()
}
