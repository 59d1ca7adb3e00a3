package core

import (
	"fmt"
	"time"
)

// TaskExecutionRecord captures a completed task execution event.
type TaskExecutionRecord struct {
	TaskID     TaskID
	Manager    string
	OwnerType  string
	State      TaskState
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Panicked   bool
}

// ManagerStats represents runtime observability state for a task manager.
type ManagerStats struct {
	Name      string
	Owners    int
	Live      int
	Submitted int64
	Rejected  int64
	Cancelled int64
	Forfeited int64
	Failed    int64
	Finished  int64
	Closed    bool
}

// PoolStats represents runtime observability state for a worker pool.
type PoolStats struct {
	ID      string
	Workers int // 0 for on-demand pools
	Queued  int
	Active  int
	Running bool
}

func ownerTypeName(owner any) string {
	if owner == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", owner)
}
