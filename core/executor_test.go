package core

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingPanicHandler remembers every panic it is given.
type recordingPanicHandler struct {
	mu     sync.Mutex
	panics []any
	names  []string
}

func (h *recordingPanicHandler) HandlePanic(runtimeName string, taskID TaskID, taskName string, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panics = append(h.panics, panicInfo)
	h.names = append(h.names, taskName)
}

func (h *recordingPanicHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.panics)
}

// TestExecutor_FIFOOrder verifies that tasks run in enqueue order
// Given: Three tasks that append their index when stepped
// When: The executor drains
// Then: The indices appear in spawn order
func TestExecutor_FIFOOrder(t *testing.T) {
	// Arrange
	e := NewExecutor()
	var order []int
	for i := range 3 {
		e.Spawn(NewTask(Do(func() { order = append(order, i) })))
	}

	// Act
	stepped := e.Drain()

	// Assert
	if stepped != 3 {
		t.Errorf("Drain() = %d, want 3", stepped)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want [0 1 2]", order)
		}
	}
	if e.Live() != 0 {
		t.Errorf("Live() = %d, want 0", e.Live())
	}
}

// TestExecutor_EmptyTick verifies that ticking an empty executor is a no-op
func TestExecutor_EmptyTick(t *testing.T) {
	e := NewExecutor()

	if e.RunOneTick() {
		t.Error("RunOneTick() = true on empty executor, want false")
	}
	if e.Len() != 0 || e.Live() != 0 {
		t.Errorf("Len() = %d, Live() = %d, want 0, 0", e.Len(), e.Live())
	}
}

// TestExecutor_WakeDeduplicated verifies that a queued task is held once
// Given: A suspended task
// When: Its notifier fires three times before the next tick
// Then: It is queued once and stepped once per tick
func TestExecutor_WakeDeduplicated(t *testing.T) {
	// Arrange
	e := NewExecutor()
	var saved Notifier
	steps := 0
	task := NewTask(ComputationFunc(func(n Notifier) Status {
		steps++
		saved = n
		if steps == 2 {
			return Completed
		}
		return Suspended
	}))
	e.Spawn(task)
	e.RunOneTick()

	// Act
	saved.Wake()
	saved.Wake()
	saved.Wake()

	// Assert
	if got := e.Len(); got != 1 {
		t.Fatalf("Len() after three wakes = %d, want 1", got)
	}
	e.Drain()
	if steps != 2 {
		t.Errorf("steps = %d, want 2", steps)
	}

	// A completed task ignores further wakes.
	saved.Wake()
	if got := e.Len(); got != 0 {
		t.Errorf("Len() after waking completed task = %d, want 0", got)
	}
}

// TestExecutor_SelfWakeSteps verifies the k+1 step count for a self-waking task
// Given: A task that wakes itself and suspends k = 4 times
// When: The executor drains
// Then: The computation is stepped exactly k+1 times
func TestExecutor_SelfWakeSteps(t *testing.T) {
	e := NewExecutor()
	task := NewTask(&counter{remaining: 4})
	e.Spawn(task)

	e.Drain()

	if got := task.Steps(); got != 5 {
		t.Errorf("Steps() = %d, want 5", got)
	}
	if !task.Done() {
		t.Error("task not done")
	}
}

// TestExecutor_SuspendedWithoutWake verifies that an unwoken task is not requeued
// Given: A task that suspends and never wakes itself
// When: The executor drains
// Then: It is stepped once and stays live
func TestExecutor_SuspendedWithoutWake(t *testing.T) {
	e := NewExecutor()
	task := NewTask(ComputationFunc(func(n Notifier) Status { return Suspended }))
	e.Spawn(task)

	e.Drain()

	if got := task.Steps(); got != 1 {
		t.Errorf("Steps() = %d, want 1", got)
	}
	if e.Live() != 1 {
		t.Errorf("Live() = %d, want 1", e.Live())
	}
}

// TestExecutor_WakeFromOtherGoroutine verifies cross-goroutine wakes
// Given: A task suspended on a notifier held by another goroutine
// When: That goroutine wakes it
// Then: The next drain completes the task
func TestExecutor_WakeFromOtherGoroutine(t *testing.T) {
	e := NewExecutor()
	handoff := make(chan Notifier, 1)
	woken := false
	e.Spawn(NewTask(ComputationFunc(func(n Notifier) Status {
		if woken {
			return Completed
		}
		woken = true
		handoff <- n
		return Suspended
	})))
	e.Drain()
	select {
	case <-e.signal:
	default:
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		(<-handoff).Wake()
	}()
	wg.Wait()

	select {
	case <-e.signal:
	default:
		t.Fatal("wake did not signal the executor")
	}
	e.Drain()
	if e.Live() != 0 {
		t.Errorf("Live() = %d, want 0", e.Live())
	}
}

// TestExecutor_WakeAfterWithoutTimerWheel verifies the standalone timer fallback
// Given: A standalone executor and a task that asks to be woken after 10ms
// When: The test waits on the executor's signal
// Then: The task is requeued and completes
func TestExecutor_WakeAfterWithoutTimerWheel(t *testing.T) {
	e := NewExecutor()
	var parked atomic.Bool
	e.Spawn(NewTask(ComputationFunc(func(n Notifier) Status {
		if parked.Load() {
			return Completed
		}
		parked.Store(true)
		n.WakeAfter(10 * time.Millisecond)
		return Suspended
	})))
	e.Drain()

	deadline := time.After(2 * time.Second)
	for e.Live() > 0 {
		select {
		case <-e.signal:
			e.Drain()
		case <-deadline:
			t.Fatal("timed out waiting for delayed wake")
		}
	}
}

// TestExecutor_PanicPropagates verifies the default panic behavior
// Given: An executor without a panic handler
// When: A computation panics
// Then: The panic reaches the caller and the task is dropped from accounting
func TestExecutor_PanicPropagates(t *testing.T) {
	e := NewExecutor()
	task := NewTask(ComputationFunc(func(n Notifier) Status { panic("boom") }))
	e.Spawn(task)

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Fatalf("recovered %v, want boom", r)
			}
		}()
		e.RunOneTick()
	}()

	if e.Live() != 0 {
		t.Errorf("Live() = %d, want 0", e.Live())
	}
	if !task.Done() {
		t.Error("panicked task not marked done")
	}
	records := e.RecentTasks(1)
	if len(records) != 1 || !records[0].Panicked {
		t.Errorf("history = %+v, want one panicked record", records)
	}
}

// TestExecutor_PanicHandler verifies recovery through a PanicHandler
// Given: An executor with a recording panic handler
// When: One of two tasks panics
// Then: The handler sees the panic and the other task still runs
func TestExecutor_PanicHandler(t *testing.T) {
	// Arrange
	handler := &recordingPanicHandler{}
	e := NewExecutorWithConfig(&RuntimeConfig{PanicHandler: handler})
	ran := false
	e.Spawn(NewNamedTask("bad", ComputationFunc(func(n Notifier) Status { panic("boom") })))
	e.Spawn(NewTask(Do(func() { ran = true })))

	// Act
	e.Drain()

	// Assert
	if handler.count() != 1 {
		t.Fatalf("handled panics = %d, want 1", handler.count())
	}
	if handler.names[0] != "bad" {
		t.Errorf("panicking task = %q, want bad", handler.names[0])
	}
	if !ran {
		t.Error("task after the panicking one did not run")
	}
	if e.Live() != 0 {
		t.Errorf("Live() = %d, want 0", e.Live())
	}
}

// TestExecutor_SpawnCompletedTask verifies that finished tasks are refused
func TestExecutor_SpawnCompletedTask(t *testing.T) {
	e := NewExecutor()
	task := NewTask(Do(func() {}))
	task.Step(NewNotifier(task, nil))

	if e.Spawn(task) {
		t.Error("Spawn of a completed task = true, want false")
	}
	if e.Spawn(nil) {
		t.Error("Spawn(nil) = true, want false")
	}
	if e.Live() != 0 {
		t.Errorf("Live() = %d, want 0", e.Live())
	}
}
