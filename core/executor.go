package core

import (
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Executor owns the ReadyQueue and drives tasks on the calling goroutine.
//
// Tasks are stepped in strict FIFO order of their most recent enqueue. A task
// that suspends is not requeued automatically: it comes back only when its
// Notifier fires, so a task waiting on an external event never spins.
//
// RunOneTick and Drain must be called from a single goroutine at a time.
// Enqueue (and therefore Notifier.Wake) is safe from any goroutine.
type Executor struct {
	name   string
	queue  *ReadyQueue
	timers *TimerWheel // nil for a standalone executor
	signal chan struct{}
	clock  func() time.Time

	live      atomic.Int64
	spawned   atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	steps     atomic.Int64
	closed    atomic.Bool

	panicHandler PanicHandler
	metrics      Metrics
	logger       Logger
	history      *executionHistory
}

// NewExecutor creates a standalone executor with default configuration.
// Without a TimerWheel, Notifier.WakeAfter falls back to time.AfterFunc.
func NewExecutor() *Executor {
	return NewExecutorWithConfig(nil)
}

// NewExecutorWithConfig creates a standalone executor.
// InboxCapacity is ignored; an executor has no inbox.
func NewExecutorWithConfig(config *RuntimeConfig) *Executor {
	return newExecutor(config.withDefaults(), nil)
}

func newExecutor(cfg RuntimeConfig, timers *TimerWheel) *Executor {
	return &Executor{
		name:         cfg.Name,
		queue:        NewReadyQueue(),
		timers:       timers,
		signal:       make(chan struct{}, 1),
		clock:        cfg.Clock,
		panicHandler: cfg.PanicHandler,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		history:      newExecutionHistory(cfg.HistoryCapacity),
	}
}

// Spawn admits a new task and enqueues it.
func (e *Executor) Spawn(t *Task) bool {
	if t == nil || t.Done() || e.closed.Load() {
		return false
	}
	e.track(t)
	return e.Enqueue(t)
}

// Enqueue appends t to the tail of the ReadyQueue.
// It returns false, doing nothing, when t is already queued or has completed,
// or when the executor has been torn down.
func (e *Executor) Enqueue(t *Task) bool {
	if t == nil || t.Done() || e.closed.Load() {
		return false
	}
	if !t.queued.CompareAndSwap(false, true) {
		return false
	}
	e.queue.Push(t)
	e.notify()
	return true
}

// RunOneTick pops the head of the ReadyQueue and steps it once.
// It reports false when the queue was empty.
func (e *Executor) RunOneTick() bool {
	t, ok := e.queue.Pop()
	if !ok {
		return false
	}
	t.queued.Store(false)

	if t.Done() {
		// Completed by a Step call that did not come from this executor.
		e.finish(t, false)
		return true
	}

	e.step(t)
	return true
}

// Drain runs ticks until the ReadyQueue is empty and returns how many tasks
// were taken from the queue.
func (e *Executor) Drain() int {
	n := 0
	for e.RunOneTick() {
		n++
	}
	return n
}

// Len returns the number of queued tasks.
func (e *Executor) Len() int {
	return e.queue.Len()
}

// Live returns the number of admitted tasks that have not finished yet,
// wherever they currently are (queued, parked on a timer, or waiting for a
// Notifier).
func (e *Executor) Live() int {
	if e.closed.Load() {
		// A spawn racing Close may still have tracked a task.
		return 0
	}
	return int(e.live.Load())
}

// RecentTasks returns up to limit finished tasks, newest first.
func (e *Executor) RecentTasks(limit int) []TaskExecutionRecord {
	return e.history.Recent(limit)
}

func (e *Executor) step(t *Task) {
	n := Notifier{task: t, exec: e}
	start := time.Now()
	ok := false

	defer func() {
		if ok {
			return
		}
		rec := recover()
		e.steps.Add(1)
		e.finish(t, true)
		if rec == nil {
			// runtime.Goexit: let it continue unwinding.
			return
		}
		e.metrics.RecordTaskPanic(e.name, rec)
		if e.panicHandler == nil {
			panic(rec)
		}
		e.logger.Error("task panicked",
			F("runtime", e.name), F("task", t.Name()), F("id", t.ID()), F("panic", rec))
		e.panicHandler.HandlePanic(e.name, t.ID(), t.Name(), rec, debug.Stack())
	}()

	status := t.Step(n)
	ok = true

	e.steps.Add(1)
	e.metrics.RecordStepDuration(e.name, status, time.Since(start))

	if status == Completed {
		e.finish(t, false)
	}
}

// finish drops t from the executor's accounting, exactly once.
func (e *Executor) finish(t *Task, panicked bool) {
	if !t.finished.CompareAndSwap(false, true) {
		return
	}

	if panicked {
		t.abandon()
		e.panicked.Add(1)
	} else {
		e.completed.Add(1)
	}
	e.live.Add(-1)

	finishedAt := e.now()
	e.history.Add(TaskExecutionRecord{
		TaskID:      t.ID(),
		Name:        t.Name(),
		RuntimeName: e.name,
		Steps:       t.Steps(),
		SpawnedAt:   t.spawnedAt,
		FinishedAt:  finishedAt,
		Lifetime:    finishedAt.Sub(t.spawnedAt),
		Panicked:    panicked,
	})

	e.logger.Debug("task finished",
		F("runtime", e.name), F("task", t.Name()), F("id", t.ID()), F("steps", t.Steps()))
}

func (e *Executor) track(t *Task) {
	t.spawnedAt = e.now()
	e.live.Add(1)
	e.spawned.Add(1)
}

func (e *Executor) untrack(t *Task) {
	e.live.Add(-1)
	e.spawned.Add(-1)
}

// abandonAll drops every queued task and forgets every live one. Later
// wakes are ignored.
func (e *Executor) abandonAll() int {
	e.closed.Store(true)
	tasks := e.queue.PopAll()
	for _, t := range tasks {
		t.queued.Store(false)
		t.abandon()
	}
	e.live.Store(0)
	return len(tasks)
}

func (e *Executor) notify() {
	select {
	case e.signal <- struct{}{}:
	default:
		// A wakeup is already pending.
	}
}

func (e *Executor) now() time.Time {
	return e.clock()
}
