package core

import (
	"container/heap"
	"sync/atomic"
	"time"
)

// timerEntry is a task waiting for its deadline
type timerEntry struct {
	deadline time.Time
	task     *Task
	sequence uint64 // insertion order, breaks deadline ties
	index    int    // for heap interface
}

// timerHeap implements heap.Interface
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].sequence < h[j].sequence
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	n := len(*h)
	item := x.(*timerEntry)
	item.index = n
	*h = append(*h, item)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h timerHeap) peek() *timerEntry {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

// TimerWheel holds tasks until their deadline passes.
//
// It has no goroutine of its own: the Runtime promotes expired entries on
// every tick, so precision is bounded by how often the caller ticks.
// A TimerWheel is owned by a single goroutine and is not safe for concurrent
// use; only Len may be read from other goroutines.
type TimerWheel struct {
	pq      timerHeap
	nextSeq uint64
	size    atomic.Int64
}

func NewTimerWheel() *TimerWheel {
	w := &TimerWheel{pq: make(timerHeap, 0)}
	heap.Init(&w.pq)
	return w
}

// Schedule stores t until deadline.
func (w *TimerWheel) Schedule(t *Task, deadline time.Time) {
	heap.Push(&w.pq, &timerEntry{
		deadline: deadline,
		task:     t,
		sequence: w.nextSeq,
	})
	w.nextSeq++
	w.size.Store(int64(len(w.pq)))
}

// PromoteExpired removes and returns every task whose deadline is at or
// before now.
func (w *TimerWheel) PromoteExpired(now time.Time) []*Task {
	var expired []*Task

	for w.pq.Len() > 0 {
		item := w.pq.peek()
		if item.deadline.After(now) {
			break // No more expired tasks
		}
		heap.Pop(&w.pq)
		expired = append(expired, item.task)
	}
	w.size.Store(int64(len(w.pq)))

	return expired
}

// NextDeadline returns the earliest pending deadline.
func (w *TimerWheel) NextDeadline() (time.Time, bool) {
	item := w.pq.peek()
	if item == nil {
		return time.Time{}, false
	}
	return item.deadline, true
}

func (w *TimerWheel) Len() int {
	return int(w.size.Load())
}

// Clear drops every pending entry.
func (w *TimerWheel) Clear() {
	w.pq = make(timerHeap, 0)
	heap.Init(&w.pq)
	w.size.Store(0)
}
