package fanout

import (
	"sync"
	"time"

	"github.com/LoshkinOleg/TestingMultithreading/core"
)

// =============================================================================
// Global Executor Helper (Singleton)
// =============================================================================

var (
	globalExecutor *core.Executor
	globalMu       sync.Mutex
)

// InitGlobalExecutor initializes the global executor with config.
// A nil config uses DefaultExecutorConfig. Later calls are no-ops.
func InitGlobalExecutor(config *core.ExecutorConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalExecutor != nil {
		return // Already initialized
	}
	globalExecutor = core.NewExecutor(config)
}

// GetGlobalExecutor returns the global executor instance.
// It panics if InitGlobalExecutor has not been called.
func GetGlobalExecutor() *core.Executor {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalExecutor == nil {
		panic("GlobalExecutor not initialized. Call InitGlobalExecutor() first.")
	}
	return globalExecutor
}

// ShutdownGlobalExecutor drops the global executor. Operations already running on
// it still join their workers before returning.
func ShutdownGlobalExecutor() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalExecutor = nil
}

// RunTimedFanOut runs a timed fan-out on the global executor.
func RunTimedFanOut(workerCount int, wait, ownWork time.Duration) error {
	return GetGlobalExecutor().RunTimedFanOut(workerCount, wait, ownWork)
}

// RunSumFanIn runs a sum fan-in on the global executor.
func RunSumFanIn(workerCount int) (FanInResult, error) {
	return GetGlobalExecutor().RunSumFanIn(workerCount)
}

// RunDemo runs the scripted fan-out then fan-in demo on the global executor.
func RunDemo(opts DemoOptions) (FanInResult, error) {
	return GetGlobalExecutor().RunDemo(opts)
}
