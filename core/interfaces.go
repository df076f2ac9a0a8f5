package core

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"
)

// Operation names used as the op label in metrics and errors.
const (
	OpComputeWorkerCount = "compute_worker_count"
	OpTimedFanOut        = "timed_fan_out"
	OpSumFanIn           = "sum_fan_in"
)

// =============================================================================
// PanicHandler: Interface for handling worker panics
// =============================================================================

// PanicHandler is called when a worker panics during execution.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a worker panics.
	//
	// Parameters:
	// - ctx: Background context of the worker
	// - op: The executor operation the worker belongs to
	// - workerID: The launch index of the worker
	// - panicInfo: The panic value recovered from the worker
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, op string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that prints to stderr.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stderr.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, op string, workerID int, panicInfo any, stackTrace []byte) {
	fmt.Fprintf(os.Stderr, "[Worker %d @ %s] Panic: %v\nStack trace:\n%s",
		workerID, op, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting executor metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast; RecordTaskDuration and
// RecordTaskPanic are called from worker goroutines.
type Metrics interface {
	// RecordWorkersLaunched records how many workers an operation started.
	RecordWorkersLaunched(op string, count int)

	// RecordTaskDuration records how long one worker ran.
	RecordTaskDuration(op string, duration time.Duration)

	// RecordTaskPanic records that a worker panicked.
	RecordTaskPanic(op string, panicInfo any)

	// RecordPollIterations records the readiness checks a fan-in performed.
	RecordPollIterations(op string, iterations uint64)

	// RecordPreconditionViolation records a rejected worker count.
	RecordPreconditionViolation(op string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordWorkersLaunched(op string, count int)           {}
func (m *NilMetrics) RecordTaskDuration(op string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskPanic(op string, panicInfo any)             {}
func (m *NilMetrics) RecordPollIterations(op string, iterations uint64)    {}
func (m *NilMetrics) RecordPreconditionViolation(op string)                {}

// =============================================================================
// RandSource: injected randomness for fan-in inputs
// =============================================================================

// RandSource yields integers in [0, n). *rand.Rand from math/rand/v2 satisfies it.
// The executor only draws from it on the orchestrating goroutine.
type RandSource interface {
	IntN(n int) int
}

// NewSeededRand returns a deterministic RandSource for the given seed.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// =============================================================================
// ExecutorConfig: Configuration for Executor
// =============================================================================

// ExecutorConfig holds configuration options for Executor.
// All fields are optional; zero values are replaced by defaults in NewExecutor.
type ExecutorConfig struct {
	// Name labels the executor in metrics and stats. Defaults to "executor".
	Name string

	// Observer receives executor events. Defaults to NopObserver.
	Observer Observer

	// Logger receives executor diagnostics. Defaults to NoOpLogger.
	Logger Logger

	// Metrics records executor metrics. Defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler is called when a worker panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Rand draws fan-in inputs and delays. Defaults to a time-seeded generator.
	Rand RandSource

	// TimeUnit scales the random fan-in delay of [0, 5) units. Defaults to one second.
	TimeUnit time.Duration

	// Strategy selects how fan-in waits for readiness. Defaults to BusyPoll.
	Strategy ReadinessStrategy

	// LockOSThread runs every worker on its own dedicated OS thread.
	LockOSThread bool

	// Parallelism reports hardware parallelism. Defaults to HardwareParallelism.
	Parallelism func() int
}

// DefaultExecutorConfig returns a config with default handlers.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		Name:         "executor",
		Observer:     NopObserver{},
		Logger:       NewNoOpLogger(),
		Metrics:      &NilMetrics{},
		PanicHandler: &DefaultPanicHandler{},
		Rand:         NewSeededRand(uint64(time.Now().UnixNano())),
		TimeUnit:     time.Second,
		Strategy:     BusyPoll,
		Parallelism:  HardwareParallelism,
	}
}
