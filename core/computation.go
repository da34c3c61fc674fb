package core

import (
	"sync"
	"time"
)

// Computations returned by this file keep their progress internally, so each
// value drives exactly one task. Build a fresh one per spawn.

// Do returns a Computation that calls f and completes on its first step.
func Do(f func()) Computation {
	return ComputationFunc(func(n Notifier) Status {
		f()
		return Completed
	})
}

// YieldNow returns a Computation that gives every other queued task a turn:
// it wakes itself, suspends once, and completes on its next step.
func YieldNow() Computation {
	return &yieldNow{}
}

type yieldNow struct {
	yielded bool
}

func (y *yieldNow) Name() string { return "yield" }

func (y *yieldNow) Step(n Notifier) Status {
	if y.yielded {
		return Completed
	}
	y.yielded = true
	n.Wake()
	return Suspended
}

// Sleep returns a Computation that completes once d has elapsed since its
// first step. The wait is parked in the runtime's TimerWheel, so it resolves
// on the first tick at or after the deadline.
func Sleep(d time.Duration) Computation {
	return &sleep{d: d}
}

type sleep struct {
	d        time.Duration
	deadline time.Time
	parked   bool
}

func (s *sleep) Name() string { return "sleep" }

func (s *sleep) Step(n Notifier) Status {
	now := n.now()
	if s.deadline.IsZero() {
		s.deadline = now.Add(s.d)
	}
	if !now.Before(s.deadline) {
		return Completed
	}
	// A wake before the deadline leaves the parked timer in place.
	if !s.parked {
		n.WakeAt(s.deadline)
		s.parked = true
	}
	return Suspended
}

// Chain returns a Computation that runs cs one after another. When one
// completes, the next starts within the same step.
func Chain(cs ...Computation) Computation {
	return &chain{cs: cs}
}

type chain struct {
	cs []Computation
}

func (c *chain) Name() string { return "chain" }

func (c *chain) Step(n Notifier) Status {
	for len(c.cs) > 0 {
		if c.cs[0].Step(n) == Suspended {
			return Suspended
		}
		c.cs[0] = nil
		c.cs = c.cs[1:]
	}
	return Completed
}

// =============================================================================
// Signal
// =============================================================================

// Signal is a one-shot event that tasks can await.
//
// Notify may be called from any goroutine; it wakes every task currently
// awaiting the signal. Once notified, a Signal stays notified.
type Signal struct {
	mu      sync.Mutex
	fired   bool
	waiters []Notifier
}

// Notify fires s and wakes its waiters.
func (s *Signal) Notify() {
	s.mu.Lock()
	s.fired = true
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, n := range waiters {
		n.Wake()
	}
}

// Fired reports whether Notify has been called.
func (s *Signal) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Await returns a Computation that suspends until s is notified.
func (s *Signal) Await() Computation {
	return ComputationFunc(func(n Notifier) Status {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.fired {
			return Completed
		}
		s.waiters = append(s.waiters, n)
		return Suspended
	})
}
