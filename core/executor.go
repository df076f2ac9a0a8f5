package core

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ReadinessStrategy selects how a fan-in waits for its workers.
type ReadinessStrategy int

const (
	// BusyPoll spins over every pending Future with non-blocking checks.
	// It burns a CPU while waiting and exists to make polling iterations observable.
	BusyPoll ReadinessStrategy = iota

	// BlockingWait sleeps in a select over every pending Future and wakes on
	// each completion.
	BlockingWait
)

func (s ReadinessStrategy) String() string {
	switch s {
	case BusyPoll:
		return "busy-poll"
	case BlockingWait:
		return "blocking-wait"
	default:
		return fmt.Sprintf("ReadinessStrategy(%d)", int(s))
	}
}

// ParseReadinessStrategy converts "busy-poll" or "blocking-wait" into a strategy.
func ParseReadinessStrategy(s string) (ReadinessStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "busy-poll", "busypoll":
		return BusyPoll, nil
	case "blocking-wait", "blockingwait", "select":
		return BlockingWait, nil
	default:
		return BusyPoll, fmt.Errorf("unknown readiness strategy %q", s)
	}
}

// SumResult is one fan-in triple, tagged with its launch index.
type SumResult struct {
	Index int
	A     int
	B     int
	Sum   int
}

// FanInResult is the outcome of RunSumFanIn.
type FanInResult struct {
	// Results holds one triple per worker, in launch order.
	Results []SumResult

	// PollIterations counts readiness checks (BusyPoll) or wake-ups (BlockingWait).
	PollIterations uint64
}

// Executor launches bounded sets of worker threads and joins them.
// Every worker is a fresh goroutine; nothing is pooled between operations.
// An Executor is safe for concurrent use.
type Executor struct {
	observer     Observer
	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler
	timeUnit     time.Duration
	strategy     ReadinessStrategy
	lockOSThread bool
	parallelism  func() int

	randMu sync.Mutex
	rand   RandSource

	name       string
	active     atomic.Int64
	launched   atomic.Int64
	running    atomic.Int64
	completed  atomic.Int64
	violations atomic.Int64

	statsMu  sync.Mutex
	lastOp   string
	lastOpAt time.Time
}

// NewExecutor creates an Executor. A nil config uses DefaultExecutorConfig.
func NewExecutor(config *ExecutorConfig) *Executor {
	defaults := DefaultExecutorConfig()
	if config == nil {
		config = defaults
	}

	e := &Executor{
		observer:     config.Observer,
		logger:       config.Logger,
		metrics:      config.Metrics,
		panicHandler: config.PanicHandler,
		rand:         config.Rand,
		timeUnit:     config.TimeUnit,
		strategy:     config.Strategy,
		lockOSThread: config.LockOSThread,
		parallelism:  config.Parallelism,
		name:         config.Name,
	}
	if e.observer == nil {
		e.observer = defaults.Observer
	}
	if e.logger == nil {
		e.logger = defaults.Logger
	}
	if e.metrics == nil {
		e.metrics = defaults.Metrics
	}
	if e.panicHandler == nil {
		e.panicHandler = defaults.PanicHandler
	}
	if e.rand == nil {
		e.rand = defaults.Rand
	}
	if e.timeUnit <= 0 {
		e.timeUnit = defaults.TimeUnit
	}
	if e.parallelism == nil {
		e.parallelism = defaults.Parallelism
	}
	if e.name == "" {
		e.name = defaults.Name
	}
	return e
}

// Name returns the executor's name, used as a metrics label.
func (e *Executor) Name() string {
	return e.name
}

// Stats returns a snapshot of the executor's activity.
func (e *Executor) Stats() ExecutorStats {
	e.statsMu.Lock()
	lastOp, lastOpAt := e.lastOp, e.lastOpAt
	e.statsMu.Unlock()

	return ExecutorStats{
		Name:              e.name,
		ActiveWorkers:     int(e.active.Load()),
		LaunchedWorkers:   e.launched.Load(),
		RunningOperations: int(e.running.Load()),
		CompletedOps:      e.completed.Load(),
		Violations:        e.violations.Load(),
		LastOperation:     lastOp,
		LastOperationAt:   lastOpAt,
	}
}

func (e *Executor) beginOp(op string) func() {
	e.running.Add(1)
	return func() {
		e.running.Add(-1)
		e.completed.Add(1)
		e.statsMu.Lock()
		e.lastOp, e.lastOpAt = op, time.Now()
		e.statsMu.Unlock()
	}
}

// spawn starts one worker and keeps the active/launched counters current.
func (e *Executor) spawn(id int, opts ThreadOptions, body func()) *Thread {
	e.active.Add(1)
	e.launched.Add(1)
	return SpawnThread(id, opts, func() {
		defer e.active.Add(-1)
		body()
	})
}

// Strategy returns the readiness strategy used by RunSumFanIn.
func (e *Executor) Strategy() ReadinessStrategy {
	return e.strategy
}

// WorkerCount derives the worker count for occupiedThreads from the configured
// parallelism source. See ComputeWorkerCountFor.
func (e *Executor) WorkerCount(occupiedThreads int) (int, error) {
	parallelism := e.parallelism()
	n, err := ComputeWorkerCountFor(parallelism, occupiedThreads)
	if err != nil {
		e.violations.Add(1)
		e.metrics.RecordPreconditionViolation(OpComputeWorkerCount)
		e.logger.Error("invalid worker count",
			F("hardware_parallelism", parallelism),
			F("occupied_threads", occupiedThreads),
			F("error", err))
		return 0, err
	}
	e.logger.Debug("computed worker count",
		F("hardware_parallelism", parallelism),
		F("occupied_threads", occupiedThreads),
		F("workers", n))
	return n, nil
}

func (e *Executor) checkWorkerCount(op string, workerCount int) error {
	if err := checkWorkerCount(op, workerCount); err != nil {
		e.violations.Add(1)
		e.metrics.RecordPreconditionViolation(op)
		return err
	}
	return nil
}

func (e *Executor) threadOptions(op string) ThreadOptions {
	return ThreadOptions{
		LockOSThread: e.lockOSThread,
		OnPanic: func(workerID int, panicInfo any, stackTrace []byte) {
			e.metrics.RecordTaskPanic(op, panicInfo)
			e.panicHandler.HandlePanic(context.Background(), op, workerID, panicInfo, stackTrace)
		},
	}
}

// =============================================================================
// Timed fan-out
// =============================================================================

// RunTimedFanOut launches workerCount workers that each sleep for wait, while the
// calling goroutine sleeps for ownWork on its own. It then joins every worker.
//
// The call lasts at least max(wait, ownWork). workerCount <= 0 is rejected with a
// *PreconditionError before anything is launched.
func (e *Executor) RunTimedFanOut(workerCount int, wait, ownWork time.Duration) error {
	if err := e.checkWorkerCount(OpTimedFanOut, workerCount); err != nil {
		return err
	}
	defer e.beginOp(OpTimedFanOut)()

	threads := make([]*Thread, 0, workerCount)
	defer func() { JoinAll(threads) }()

	opts := e.threadOptions(OpTimedFanOut)
	for i := 0; i < workerCount; i++ {
		threads = append(threads, e.spawn(i, opts, func() {
			start := time.Now()
			time.Sleep(wait)
			e.metrics.RecordTaskDuration(OpTimedFanOut, time.Since(start))
			e.observer.WorkerFinished(i)
		}))
	}
	e.metrics.RecordWorkersLaunched(OpTimedFanOut, workerCount)
	e.observer.WorkersLaunched(workerCount)

	e.observer.OwnWorkStarted()
	time.Sleep(ownWork)
	e.observer.OwnWorkFinished()

	JoinAll(threads)
	e.observer.AllWorkersJoined(workerCount)
	return nil
}

// =============================================================================
// Sum fan-in
// =============================================================================

// RunSumFanIn launches workerCount workers. Worker i sleeps a random [0, 5) time
// units, then hands a[i]+b[i] back through a one-shot channel, with a and b drawn
// from [0, 100). The orchestrator waits for every result using the configured
// ReadinessStrategy, collects the sums in launch order and joins the workers.
func (e *Executor) RunSumFanIn(workerCount int) (FanInResult, error) {
	if err := e.checkWorkerCount(OpSumFanIn, workerCount); err != nil {
		return FanInResult{}, err
	}
	defer e.beginOp(OpSumFanIn)()

	a, b, delays := e.drawInputs(workerCount)
	promises := make([]*Promise[int], workerCount)
	futures := make([]*Future[int], workerCount)
	for i := range promises {
		promises[i], futures[i] = NewOneShot[int]()
	}

	threads := make([]*Thread, 0, workerCount)
	defer func() { JoinAll(threads) }()

	opts := e.threadOptions(OpSumFanIn)
	for i := 0; i < workerCount; i++ {
		promise, x, y, delay := promises[i], a[i], b[i], delays[i]
		promises[i] = nil
		threads = append(threads, e.spawn(i, opts, func() {
			start := time.Now()
			time.Sleep(delay)
			// This worker is the promise's only holder, so Set cannot fail.
			_ = promise.Set(x + y)
			e.metrics.RecordTaskDuration(OpSumFanIn, time.Since(start))
		}))
	}
	e.metrics.RecordWorkersLaunched(OpSumFanIn, workerCount)
	e.observer.WorkersLaunched(workerCount)

	var iterations uint64
	switch e.strategy {
	case BlockingWait:
		iterations = e.blockingWait(futures)
	default:
		iterations = e.busyPoll(futures)
	}
	e.metrics.RecordPollIterations(OpSumFanIn, iterations)
	e.observer.AllWorkersReady(iterations)

	results := make([]SumResult, workerCount)
	for i, f := range futures {
		sum, err := f.Get()
		if err != nil {
			return FanInResult{}, fmt.Errorf("%s: worker %d: %w", OpSumFanIn, i, err)
		}
		results[i] = SumResult{Index: i, A: a[i], B: b[i], Sum: sum}
		e.observer.ResultComputed(i, a[i], b[i], sum)
	}

	JoinAll(threads)
	e.observer.AllWorkersJoined(workerCount)
	return FanInResult{Results: results, PollIterations: iterations}, nil
}

// drawInputs draws every operand pair, then every delay, on the calling goroutine
// so that a seeded RandSource reproduces the same run.
func (e *Executor) drawInputs(n int) (a, b []int, delays []time.Duration) {
	e.randMu.Lock()
	defer e.randMu.Unlock()

	a = make([]int, n)
	b = make([]int, n)
	for i := 0; i < n; i++ {
		a[i] = e.rand.IntN(100)
		b[i] = e.rand.IntN(100)
	}
	delays = make([]time.Duration, n)
	for i := range delays {
		delays[i] = time.Duration(e.rand.IntN(5)) * e.timeUnit
	}
	return a, b, delays
}

// busyPoll spins until every future is ready. Each non-blocking check of a
// not-yet-ready future counts as one iteration.
func (e *Executor) busyPoll(futures []*Future[int]) uint64 {
	ready := make([]bool, len(futures))
	remaining := len(futures)
	var iterations uint64

	for remaining > 0 {
		for i, f := range futures {
			if ready[i] {
				continue
			}
			iterations++
			if f.IsReady() {
				ready[i] = true
				remaining--
				e.observer.WorkerBecameReady(i)
			}
		}
	}
	return iterations
}

// blockingWait selects over the pending futures and counts wake-ups.
func (e *Executor) blockingWait(futures []*Future[int]) uint64 {
	cases := make([]reflect.SelectCase, len(futures))
	indexes := make([]int, len(futures))
	for i, f := range futures {
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(f.Done())}
		indexes[i] = i
	}

	var iterations uint64
	for len(cases) > 0 {
		chosen, _, _ := reflect.Select(cases)
		iterations++
		e.observer.WorkerBecameReady(indexes[chosen])

		last := len(cases) - 1
		cases[chosen], indexes[chosen] = cases[last], indexes[last]
		cases, indexes = cases[:last], indexes[:last]
	}
	return iterations
}

// =============================================================================
// Scripted demo
// =============================================================================

// DemoOptions parameterizes RunDemo.
type DemoOptions struct {
	// OccupiedThreads is subtracted from hardware parallelism to size both runs.
	OccupiedThreads int

	// Wait is how long each timed fan-out worker sleeps.
	Wait time.Duration

	// OwnWork is how long the orchestrator sleeps during the timed fan-out.
	OwnWork time.Duration
}

// DefaultDemoOptions mirrors the classic demo: one occupied thread, workers
// sleeping one second while the caller works for three.
func DefaultDemoOptions() DemoOptions {
	return DemoOptions{
		OccupiedThreads: 1,
		Wait:            time.Second,
		OwnWork:         3 * time.Second,
	}
}

// RunDemo derives the worker count, then runs the timed fan-out followed by the
// sum fan-in. No worker is launched if the worker count is invalid.
func (e *Executor) RunDemo(opts DemoOptions) (FanInResult, error) {
	n, err := e.WorkerCount(opts.OccupiedThreads)
	if err != nil {
		return FanInResult{}, err
	}

	e.logger.Info("running timed fan-out", F("workers", n), F("wait", opts.Wait), F("own_work", opts.OwnWork))
	if err := e.RunTimedFanOut(n, opts.Wait, opts.OwnWork); err != nil {
		return FanInResult{}, err
	}

	e.logger.Info("running sum fan-in", F("workers", n), F("strategy", e.strategy))
	return e.RunSumFanIn(n)
}
