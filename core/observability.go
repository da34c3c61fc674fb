package core

import "time"

// TaskExecutionRecord captures a finished task.
type TaskExecutionRecord struct {
	TaskID      TaskID
	Name        string
	RuntimeName string
	Steps       int64
	SpawnedAt   time.Time
	FinishedAt  time.Time
	Lifetime    time.Duration
	Panicked    bool
}

// RuntimeStats represents runtime observability state.
type RuntimeStats struct {
	Name      string
	Ready     int   // tasks in the ReadyQueue
	Inbox     int   // spawned tasks not yet admitted
	Timers    int   // tasks parked in the TimerWheel
	Live      int   // tasks spawned and not yet finished
	Spawned   int64 // tasks accepted by Spawn / SpawnAfter
	Completed int64
	Panicked  int64
	Steps     int64
	Rejected  int64
	Closed    bool

	LastTaskName string
	LastTaskAt   time.Time
}
