// Package coop provides a minimal cooperative task scheduler for Go.
//
// Work is expressed as computations that advance in explicit steps. A step
// either completes the computation or suspends it; a suspended computation is
// stepped again only after its Notifier wakes it. All steps run on the
// goroutine that drives the Runtime, one at a time and in FIFO order, so
// state owned by computations needs no locking.
//
// # Quick Start
//
// Run a computation to completion:
//
//	rt := coop.NewRuntime()
//	rt.BlockOn(coop.Do(func() {
//		fmt.Println("hello")
//	}))
//
// Or drive the runtime from your own loop:
//
//	rt.SpawnAfter(coop.Do(func() { fmt.Println("later") }), time.Second)
//	for {
//		rt.Tick()
//		time.Sleep(10 * time.Millisecond)
//	}
//
// # Key Concepts
//
// Computation: anything with Step(Notifier) Status. Return Suspended after
// arranging a wake (Notifier.Wake, Notifier.WakeAfter, a Signal), or
// Completed when done.
//
// Runtime: owns an inbox for cross-goroutine spawns, a timer wheel for
// deferred spawns and sleeps, and an executor with the ready queue.
// Tick is non-blocking and steps at most one task; BlockOn and Drain run
// until nothing is runnable.
//
// # Thread Safety
//
// Spawn, Spawner and Notifier.Wake are safe from any goroutine. Everything
// else (Tick, Drain, BlockOn, Run, SpawnAfter, WakeAfter, Close) belongs to
// the goroutine that drives the runtime.
//
// The global runtime helpers (InitGlobalRuntime, Spawn, BlockOn, Tick)
// cover programs that need a single runtime.
package coop
