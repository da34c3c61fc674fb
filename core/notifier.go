package core

import "time"

// Waker is the one-method capability behind a Notifier.
type Waker interface {
	Wake()
}

var _ Waker = Notifier{}

// Notifier signals that the Task it is bound to may make progress.
//
// A Notifier is a small value: copying it clones it, and once every copy is
// unreachable the bound Task is released by the garbage collector. Waking is
// queue-based: the task is put back into its Executor's ReadyQueue and is
// stepped by a later tick, never inline.
type Notifier struct {
	task *Task
	exec *Executor
}

// NewNotifier binds a Notifier to t and e.
func NewNotifier(t *Task, e *Executor) Notifier {
	return Notifier{task: t, exec: e}
}

// Task returns the bound task.
func (n Notifier) Task() *Task {
	return n.task
}

// Wake enqueues the bound task unless it is already queued or completed.
// Wake is safe to call from any goroutine.
func (n Notifier) Wake() {
	if n.task == nil || n.exec == nil {
		return
	}
	n.exec.Enqueue(n.task)
}

// WakeAfter wakes the bound task once d has elapsed.
//
// WakeAfter parks the task in the runtime's TimerWheel, which is owned by the
// runtime's goroutine: call it only from within Step. From any other goroutine
// use Wake.
func (n Notifier) WakeAfter(d time.Duration) {
	if n.exec == nil {
		return
	}
	n.WakeAt(n.exec.now().Add(d))
}

// WakeAt wakes the bound task once deadline has passed.
// The same ownership rule as WakeAfter applies.
func (n Notifier) WakeAt(deadline time.Time) {
	if n.task == nil || n.exec == nil {
		return
	}
	if n.exec.timers == nil {
		time.AfterFunc(deadline.Sub(n.exec.now()), n.Wake)
		return
	}
	n.exec.timers.Schedule(n.task, deadline)
}

// now reads the clock of the executor the notifier belongs to.
func (n Notifier) now() time.Time {
	if n.exec == nil {
		return time.Now()
	}
	return n.exec.now()
}
