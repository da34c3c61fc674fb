package core

import "sync"

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// ReadyQueue is the FIFO of tasks eligible for immediate stepping.
//
// The queue itself does not deduplicate; the Executor keeps every task in it
// at most once through the task's queued flag. It is guarded by a mutex
// because wakes can be issued from any goroutine.
type ReadyQueue struct {
	mu    sync.Mutex
	tasks []*Task
}

func NewReadyQueue() *ReadyQueue {
	return &ReadyQueue{
		tasks: make([]*Task, 0, defaultQueueCap),
	}
}

// Push appends t to the tail.
func (q *ReadyQueue) Push(t *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
}

// Pop removes and returns the head.
func (q *ReadyQueue) Pop() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}

	t := q.tasks[0]
	// Zero out the element in the underlying array to prevent memory leak
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	q.maybeCompactLocked()

	return t, true
}

// PopAll removes and returns every queued task in FIFO order.
func (q *ReadyQueue) PopAll() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil
	}

	batch := q.tasks
	q.tasks = make([]*Task, 0, defaultQueueCap)
	return batch
}

func (q *ReadyQueue) maybeCompactLocked() {
	n := len(q.tasks)
	c := cap(q.tasks)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.tasks = make([]*Task, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]*Task, n, newCap)
	copy(newSlice, q.tasks)
	q.tasks = newSlice
}

func (q *ReadyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
