package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Runtime is the public façade of the scheduler.
//
// It combines two admission paths with different concurrency guarantees and
// one Executor:
//   - an inbox channel for immediate spawns; Spawn is safe from any goroutine;
//   - a TimerWheel for deferred spawns; SpawnAfter belongs to the owner.
//
// The owner drives the runtime either with BlockOn/Drain (blocking, run to
// completion) or with repeated calls to Tick (non-blocking, one step each).
// Tick, Drain, BlockOn, Run, SpawnAfter and Close must not be called
// concurrently with each other.
type Runtime struct {
	name    string
	exec    *Executor
	timers  *TimerWheel
	inbox   *inbox
	spawner *Spawner
	clock   func() time.Time

	logger   Logger
	metrics  Metrics
	rejected RejectedTaskHandler
}

type inbox struct {
	ch   chan *Task
	done chan struct{}

	// sendMu is held shared by senders and exclusively by Close while it
	// drains ch, so no send can land after the drain.
	sendMu    sync.RWMutex
	closed    atomic.Bool
	closeOnce sync.Once
	rejected  atomic.Int64
}

// NewRuntime creates a Runtime with default configuration.
func NewRuntime() *Runtime {
	return NewRuntimeWithConfig(DefaultRuntimeConfig())
}

// NewRuntimeWithConfig creates a Runtime. A nil config uses defaults.
func NewRuntimeWithConfig(config *RuntimeConfig) *Runtime {
	cfg := config.withDefaults()

	timers := NewTimerWheel()
	in := &inbox{
		ch:   make(chan *Task, cfg.InboxCapacity),
		done: make(chan struct{}),
	}

	r := &Runtime{
		name:     cfg.Name,
		exec:     newExecutor(cfg, timers),
		timers:   timers,
		inbox:    in,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		rejected: cfg.RejectedTaskHandler,
	}
	r.spawner = &Spawner{rt: r}
	return r
}

// Name returns the runtime name.
func (r *Runtime) Name() string {
	return r.name
}

// Executor returns the runtime's executor.
func (r *Runtime) Executor() *Executor {
	return r.exec
}

// =============================================================================
// Admission
// =============================================================================

// Spawn wraps c into a Task and sends it through the inbox.
// It is safe for concurrent use and returns ErrChannelClosed after Close.
func (r *Runtime) Spawn(c Computation) error {
	return r.spawner.SpawnNamed("", c)
}

// SpawnNamed is Spawn with an explicit task name.
func (r *Runtime) SpawnNamed(name string, c Computation) error {
	return r.spawner.SpawnNamed(name, c)
}

// Spawner returns a sending end of the inbox that can be handed to other
// goroutines.
func (r *Runtime) Spawner() *Spawner {
	return r.spawner.Clone()
}

// SpawnAfter wraps c into a Task that becomes eligible for stepping once
// delay has elapsed. The task goes straight into the TimerWheel, so SpawnAfter
// must be called from the goroutine that drives the runtime (or from a step).
func (r *Runtime) SpawnAfter(c Computation, delay time.Duration) {
	r.SpawnNamedAfter("", c, delay)
}

// SpawnNamedAfter is SpawnAfter with an explicit task name.
func (r *Runtime) SpawnNamedAfter(name string, c Computation, delay time.Duration) {
	if c == nil {
		r.logger.Warn("nil computation ignored", F("runtime", r.name))
		return
	}
	t := NewNamedTask(name, c)
	if r.IsClosed() {
		r.reject(t, "channel closed")
		return
	}

	deadline := r.clock().Add(delay)
	r.exec.track(t)
	r.timers.Schedule(t, deadline)

	r.logger.Debug("task scheduled",
		F("runtime", r.name), F("task", t.Name()), F("id", t.ID()), F("deadline", deadline))
}

// admitInbox moves every message currently in the inbox into the ReadyQueue.
func (r *Runtime) admitInbox() int {
	pending := len(r.inbox.ch)
	for range pending {
		r.exec.Enqueue(<-r.inbox.ch)
	}
	return pending
}

// promoteTimers moves every expired timer into the ReadyQueue.
func (r *Runtime) promoteTimers() int {
	expired := r.timers.PromoteExpired(r.clock())
	for _, t := range expired {
		r.exec.Enqueue(t)
	}
	return len(expired)
}

func (r *Runtime) admit() int {
	return r.admitInbox() + r.promoteTimers()
}

// =============================================================================
// Driving
// =============================================================================

// Tick admits every available inbox message, promotes every expired timer
// and then steps at most one task. It never blocks.
func (r *Runtime) Tick() {
	r.admit()
	r.exec.RunOneTick()
	r.recordDepth()
}

// Drain admits and steps tasks until nothing is immediately runnable:
// the inbox is empty, no timer has expired and the ReadyQueue is empty.
// It returns how many tasks were stepped. Suspended tasks waiting for a
// Notifier or a future deadline are left alone.
func (r *Runtime) Drain() int {
	steps := 0
	for {
		admitted := r.admit()
		if admitted == 0 && r.exec.Len() == 0 {
			break
		}
		steps += r.exec.Drain()
	}
	r.recordDepth()
	return steps
}

// BlockOn spawns c and runs the runtime until no task is live, sleeping
// between wakes and timer deadlines. Live tasks spawned by anyone, including
// those c spawned transitively, keep BlockOn running.
func (r *Runtime) BlockOn(c Computation) error {
	return r.BlockOnContext(context.Background(), c)
}

// BlockOnContext is BlockOn bounded by ctx. On cancellation the remaining
// tasks stay where they are and ctx.Err() is returned.
func (r *Runtime) BlockOnContext(ctx context.Context, c Computation) error {
	if err := r.Spawn(c); err != nil {
		return err
	}

	for {
		r.Drain()
		if r.exec.Live() == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.wait(ctx); err != nil {
			return err
		}
	}
}

// wait blocks until a wake, a spawn, the next timer deadline or ctx.
func (r *Runtime) wait(ctx context.Context) error {
	var timerC <-chan time.Time
	if deadline, ok := r.timers.NextDeadline(); ok {
		d := deadline.Sub(r.clock())
		if d <= 0 {
			return nil
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.exec.signal:
	case <-timerC:
	}
	return nil
}

// Run calls Tick every interval until ctx is done.
func (r *Runtime) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	r.logger.Info("runtime loop started", F("runtime", r.name), F("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runtime loop stopped", F("runtime", r.name))
			return ctx.Err()
		case <-ticker.C:
			r.Tick()
		}
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

// Close tears down the inbox and abandons every pending task without running
// it. Spawns after Close fail with ErrChannelClosed. Close is idempotent.
func (r *Runtime) Close() {
	r.inbox.closeOnce.Do(func() {
		r.inbox.closed.Store(true)
		close(r.inbox.done)

		// Blocked senders have been released by done; wait out the rest.
		r.inbox.sendMu.Lock()
		abandoned := 0
		for range len(r.inbox.ch) {
			(<-r.inbox.ch).abandon()
			abandoned++
		}
		r.inbox.sendMu.Unlock()
		abandoned += r.timers.Len()
		r.timers.Clear()
		abandoned += r.exec.abandonAll()

		r.logger.Info("runtime closed", F("runtime", r.name), F("abandoned", abandoned))
	})
}

// IsClosed reports whether Close has been called.
func (r *Runtime) IsClosed() bool {
	return r.inbox.closed.Load()
}

// =============================================================================
// Observability
// =============================================================================

// Stats returns a snapshot of the runtime. It is safe for concurrent use.
func (r *Runtime) Stats() RuntimeStats {
	stats := RuntimeStats{
		Name:      r.name,
		Ready:     r.exec.Len(),
		Inbox:     len(r.inbox.ch),
		Timers:    r.timers.Len(),
		Live:      r.exec.Live(),
		Spawned:   r.exec.spawned.Load(),
		Completed: r.exec.completed.Load(),
		Panicked:  r.exec.panicked.Load(),
		Steps:     r.exec.steps.Load(),
		Rejected:  r.inbox.rejected.Load(),
		Closed:    r.IsClosed(),
	}
	if last, ok := r.exec.history.Last(); ok {
		stats.LastTaskName = last.Name
		stats.LastTaskAt = last.FinishedAt
	}
	return stats
}

// RecentTasks returns up to limit finished tasks, newest first.
func (r *Runtime) RecentTasks(limit int) []TaskExecutionRecord {
	return r.exec.RecentTasks(limit)
}

func (r *Runtime) recordDepth() {
	r.metrics.RecordQueueDepth(r.name, r.exec.Len())
	r.metrics.RecordTimersPending(r.name, r.timers.Len())
}

func (r *Runtime) reject(t *Task, reason string) error {
	r.inbox.rejected.Add(1)
	r.metrics.RecordTaskRejected(r.name, reason)
	r.rejected.HandleRejectedTask(r.name, t.Name(), reason)
	r.logger.Warn("task rejected", F("runtime", r.name), F("task", t.Name()), F("reason", reason))
	return ErrChannelClosed
}

// =============================================================================
// Spawner
// =============================================================================

// Spawner is the sending end of a runtime's inbox. Copies may be shared
// freely between goroutines.
type Spawner struct {
	rt *Runtime
}

// Clone returns another handle to the same inbox.
func (s *Spawner) Clone() *Spawner {
	return &Spawner{rt: s.rt}
}

// Spawn wraps c into a Task and sends it to the runtime.
func (s *Spawner) Spawn(c Computation) error {
	return s.SpawnNamed("", c)
}

// SpawnNamed wraps c into a named Task and sends it to the runtime.
//
// SpawnNamed blocks while the inbox is full. It returns ErrChannelClosed once
// the runtime has been closed.
func (s *Spawner) SpawnNamed(name string, c Computation) error {
	if c == nil {
		return ErrNilComputation
	}

	r := s.rt
	t := NewNamedTask(name, c)

	r.inbox.sendMu.RLock()
	if r.inbox.closed.Load() {
		r.inbox.sendMu.RUnlock()
		return r.reject(t, "channel closed")
	}

	r.exec.track(t)
	select {
	case <-r.inbox.done:
		r.exec.untrack(t)
		r.inbox.sendMu.RUnlock()
		return r.reject(t, "channel closed")
	case r.inbox.ch <- t:
	}
	if r.inbox.closed.Load() {
		// Close started while the send was in flight. Its drain abandons t.
		r.exec.untrack(t)
		r.inbox.sendMu.RUnlock()
		return r.reject(t, "channel closed")
	}
	r.inbox.sendMu.RUnlock()
	r.exec.notify()

	r.logger.Debug("task spawned", F("runtime", r.name), F("task", t.Name()), F("id", t.ID()))
	return nil
}
