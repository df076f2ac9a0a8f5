package fanout

import "github.com/LoshkinOleg/TestingMultithreading/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the fanout package for most use cases.

// Executor launches bounded sets of worker threads and joins them
type Executor = core.Executor

// ExecutorConfig holds executor handlers and tuning
type ExecutorConfig = core.ExecutorConfig

// Observer receives executor events
type Observer = core.Observer

// Logger is the structured logging interface
type Logger = core.Logger

// Metrics is the executor metrics interface
type Metrics = core.Metrics

// RandSource yields the random fan-in inputs
type RandSource = core.RandSource

// ReadinessStrategy selects how fan-in waits for its workers
type ReadinessStrategy = core.ReadinessStrategy

// SumResult and FanInResult carry fan-in output
type SumResult = core.SumResult
type FanInResult = core.FanInResult

// DemoOptions parameterizes RunDemo
type DemoOptions = core.DemoOptions

// PreconditionError describes a rejected worker count
type PreconditionError = core.PreconditionError

// Readiness strategies
const (
	BusyPoll     = core.BusyPoll
	BlockingWait = core.BlockingWait
)

// ErrPreconditionViolation is the only domain error of the executor
var ErrPreconditionViolation = core.ErrPreconditionViolation

// Convenience constructors
var (
	NewExecutor           = core.NewExecutor
	DefaultExecutorConfig = core.DefaultExecutorConfig
	DefaultDemoOptions    = core.DefaultDemoOptions
	NewSeededRand         = core.NewSeededRand
	NewEventRecorder      = core.NewEventRecorder
	NewLoggingObserver    = core.NewLoggingObserver
	HardwareParallelism   = core.HardwareParallelism
	ComputeWorkerCount    = core.ComputeWorkerCount
)
