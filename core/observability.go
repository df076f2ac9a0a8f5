package core

import "time"

// ExecutorStats represents runtime observability state for an Executor.
type ExecutorStats struct {
	Name              string
	ActiveWorkers     int
	LaunchedWorkers   int64
	RunningOperations int
	CompletedOps      int64
	Violations        int64
	LastOperation     string
	LastOperationAt   time.Time
}
