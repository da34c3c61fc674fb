package core

import (
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a single step of a computation.
type Status int

const (
	// Suspended: the computation cannot make further progress right now and
	// will resume once its Notifier fires.
	Suspended Status = iota

	// Completed: the computation has fully finished.
	Completed
)

func (s Status) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Computation is a suspendable unit of work.
//
// Step drives the computation forward by one unit. A computation that
// returns Suspended must arrange for n to be woken (now or later), otherwise
// it is never stepped again and is simply abandoned.
type Computation interface {
	Step(n Notifier) Status
}

// ComputationFunc adapts an ordinary function to a Computation.
type ComputationFunc func(n Notifier) Status

// Step calls f(n).
func (f ComputationFunc) Step(n Notifier) Status {
	return f(n)
}

// =============================================================================
// TaskID
// =============================================================================

// TaskID uniquely identifies a Task for logging, history and metrics.
type TaskID uuid.UUID

// GenerateTaskID returns a new random TaskID.
func GenerateTaskID() TaskID {
	return TaskID(uuid.New())
}

// IsZero reports whether id is the zero value.
func (id TaskID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id TaskID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText encodes id in its canonical UUID form.
func (id TaskID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// =============================================================================
// Task
// =============================================================================

// Task wraps one suspendable computation together with its scheduling
// identity.
//
// Step calls are serialized by a mutex: a Notifier may be fired from a
// goroutine other than the runtime's, and a second stepping attempt must wait
// for the first to finish. Once a step reports Completed the task drops its
// computation and any further Step returns Completed without doing anything.
type Task struct {
	id        TaskID
	name      string
	spawnedAt time.Time // set by the executor's clock on admission

	mu   sync.Mutex
	comp Computation

	queued   atomic.Bool
	done     atomic.Bool
	finished atomic.Bool // accounted for by the executor
	steps    atomic.Int64
}

// NewTask wraps c into a Task. The task name is derived from c.
func NewTask(c Computation) *Task {
	return NewNamedTask("", c)
}

// NewNamedTask wraps c into a Task with an explicit name.
// An empty name falls back to the name of the computation's function.
func NewNamedTask(name string, c Computation) *Task {
	return &Task{
		id:   GenerateTaskID(),
		name: resolveComputationName(c, name),
		comp: c,
	}
}

// ID returns the task identifier.
func (t *Task) ID() TaskID { return t.id }

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Steps returns how many times the computation has been invoked.
func (t *Task) Steps() int64 { return t.steps.Load() }

// Done reports whether a step has reported completion.
func (t *Task) Done() bool { return t.done.Load() }

// Step drives the computation forward exactly one unit.
//
// A panic raised by the computation is not recovered here; it reaches the
// caller of Step with the task lock already released.
func (t *Task) Step(n Notifier) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.comp == nil {
		return Completed
	}

	t.steps.Add(1)
	status := t.comp.Step(n)
	if status == Completed {
		t.comp = nil
		t.done.Store(true)
	}
	return status
}

// abandon drops the computation without running it again.
func (t *Task) abandon() {
	t.mu.Lock()
	t.comp = nil
	t.mu.Unlock()
	t.done.Store(true)
}

func resolveComputationName(c Computation, explicit string) string {
	if explicit != "" {
		return explicit
	}

	if c == nil {
		return "anonymous"
	}

	if named, ok := c.(interface{ Name() string }); ok {
		if name := named.Name(); name != "" {
			return name
		}
	}

	v := reflect.ValueOf(c)
	if v.Kind() != reflect.Func {
		return reflect.TypeOf(c).String()
	}

	pc := v.Pointer()
	if pc == 0 {
		return "anonymous"
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil || fn.Name() == "" {
		return "anonymous"
	}
	return fn.Name()
}
