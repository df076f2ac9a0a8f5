package core_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LoshkinOleg/TestingMultithreading/core"
)

// scriptedRand replays fixed values; each value must be below the requested bound.
type scriptedRand struct {
	values []int
	pos    int
}

func (r *scriptedRand) IntN(n int) int {
	v := r.values[r.pos%len(r.values)]
	r.pos++
	return v % n
}

// recordingMetrics counts calls per method
type recordingMetrics struct {
	mu         sync.Mutex
	launched   map[string]int
	durations  map[string]int
	panics     map[string]int
	iterations map[string]uint64
	violations map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		launched:   map[string]int{},
		durations:  map[string]int{},
		panics:     map[string]int{},
		iterations: map[string]uint64{},
		violations: map[string]int{},
	}
}

func (m *recordingMetrics) RecordWorkersLaunched(op string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launched[op] += count
}

func (m *recordingMetrics) RecordTaskDuration(op string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[op]++
}

func (m *recordingMetrics) RecordTaskPanic(op string, panicInfo any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics[op]++
}

func (m *recordingMetrics) RecordPollIterations(op string, iterations uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.iterations[op] += iterations
}

func (m *recordingMetrics) RecordPreconditionViolation(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations[op]++
}

func newTestExecutor(rec *core.EventRecorder, strategy core.ReadinessStrategy, rnd core.RandSource) *core.Executor {
	return core.NewExecutor(&core.ExecutorConfig{
		Observer: rec,
		Rand:     rnd,
		TimeUnit: 10 * time.Millisecond,
		Strategy: strategy,
	})
}

var strategies = []core.ReadinessStrategy{core.BusyPoll, core.BlockingWait}

// =============================================================================
// Timed fan-out
// =============================================================================

// TestRunTimedFanOut_AllWorkersFinishOnce verifies completion and join
// Given: 4 workers waiting 50ms while the caller works for 20ms
// When: RunTimedFanOut returns
// Then: each worker finished exactly once and the call lasted at least 50ms
func TestRunTimedFanOut_AllWorkersFinishOnce(t *testing.T) {
	// Arrange
	rec := core.NewEventRecorder()
	metrics := newRecordingMetrics()
	executor := core.NewExecutor(&core.ExecutorConfig{Observer: rec, Metrics: metrics})

	// Act
	start := time.Now()
	err := executor.RunTimedFanOut(4, 50*time.Millisecond, 20*time.Millisecond)
	elapsed := time.Since(start)

	// Assert
	if err != nil {
		t.Fatalf("RunTimedFanOut failed: %v", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 50ms", elapsed)
	}

	seen := map[int]int{}
	for _, e := range rec.Filter(core.EventWorkerFinished) {
		seen[e.Index]++
	}
	if len(seen) != 4 {
		t.Fatalf("distinct finished workers = %d, want 4", len(seen))
	}
	for idx, n := range seen {
		if n != 1 {
			t.Errorf("worker %d finished %d times, want 1", idx, n)
		}
	}

	if got := rec.Filter(core.EventWorkersLaunched); len(got) != 1 || got[0].Count != 4 {
		t.Errorf("WorkersLaunched events = %+v, want one with count 4", got)
	}
	if rec.Count(core.EventOwnWorkStarted) != 1 || rec.Count(core.EventOwnWorkFinished) != 1 {
		t.Error("own work events not emitted exactly once")
	}
	joined := rec.Filter(core.EventAllWorkersJoined)
	if len(joined) != 1 || joined[0].Count != 4 {
		t.Errorf("AllWorkersJoined events = %+v, want one with count 4", joined)
	}

	events := rec.Events()
	if events[len(events)-1].Kind != core.EventAllWorkersJoined {
		t.Errorf("last event = %v, want AllWorkersJoined", events[len(events)-1].Kind)
	}

	if metrics.launched[core.OpTimedFanOut] != 4 {
		t.Errorf("launched metric = %d, want 4", metrics.launched[core.OpTimedFanOut])
	}
	if metrics.durations[core.OpTimedFanOut] != 4 {
		t.Errorf("duration samples = %d, want 4", metrics.durations[core.OpTimedFanOut])
	}
}

// TestRunTimedFanOut_OwnWorkLongerThanWorkers verifies the duration lower bound
// when the caller's own work dominates
func TestRunTimedFanOut_OwnWorkLongerThanWorkers(t *testing.T) {
	rec := core.NewEventRecorder()
	executor := core.NewExecutor(&core.ExecutorConfig{Observer: rec, LockOSThread: true})

	start := time.Now()
	if err := executor.RunTimedFanOut(2, 10*time.Millisecond, 60*time.Millisecond); err != nil {
		t.Fatalf("RunTimedFanOut failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 60ms", elapsed)
	}
	if got := rec.Count(core.EventWorkerFinished); got != 2 {
		t.Errorf("WorkerFinished count = %d, want 2", got)
	}
}

// TestRunTimedFanOut_ZeroWorkers verifies the n=0 policy
// Given: workerCount = 0
// When: RunTimedFanOut is called
// Then: a PreconditionViolation is returned and no event is emitted
func TestRunTimedFanOut_ZeroWorkers(t *testing.T) {
	rec := core.NewEventRecorder()
	metrics := newRecordingMetrics()
	executor := core.NewExecutor(&core.ExecutorConfig{Observer: rec, Metrics: metrics})

	err := executor.RunTimedFanOut(0, time.Millisecond, time.Millisecond)

	if !errors.Is(err, core.ErrPreconditionViolation) {
		t.Fatalf("error = %v, want ErrPreconditionViolation", err)
	}
	var perr *core.PreconditionError
	if !errors.As(err, &perr) || perr.Op != core.OpTimedFanOut {
		t.Errorf("error = %#v, want PreconditionError for %s", err, core.OpTimedFanOut)
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
	if metrics.violations[core.OpTimedFanOut] != 1 {
		t.Errorf("violation metric = %d, want 1", metrics.violations[core.OpTimedFanOut])
	}
}

// panickyObserver panics whenever a worker reports completion
type panickyObserver struct {
	core.NopObserver
}

func (panickyObserver) WorkerFinished(index int) {
	panic("observer failure")
}

type recordingPanicHandler struct {
	calls atomic.Int32
}

func (h *recordingPanicHandler) HandlePanic(ctx context.Context, op string, workerID int, panicInfo any, stackTrace []byte) {
	h.calls.Add(1)
}

// TestRunTimedFanOut_WorkerPanicStillJoins verifies recovered panics do not leak workers
func TestRunTimedFanOut_WorkerPanicStillJoins(t *testing.T) {
	handler := &recordingPanicHandler{}
	metrics := newRecordingMetrics()
	executor := core.NewExecutor(&core.ExecutorConfig{
		Observer:     panickyObserver{},
		PanicHandler: handler,
		Metrics:      metrics,
	})

	if err := executor.RunTimedFanOut(3, time.Millisecond, time.Millisecond); err != nil {
		t.Fatalf("RunTimedFanOut failed: %v", err)
	}
	if got := handler.calls.Load(); got != 3 {
		t.Errorf("panic handler calls = %d, want 3", got)
	}
	if metrics.panics[core.OpTimedFanOut] != 3 {
		t.Errorf("panic metric = %d, want 3", metrics.panics[core.OpTimedFanOut])
	}
}

// =============================================================================
// Sum fan-in
// =============================================================================

// TestRunSumFanIn_ScriptedScenario verifies launch-order results
// Given: inputs a=[10,55,2], b=[5,40,98] with worker 2 finishing first
// When: RunSumFanIn(3) is called
// Then: triples are (10,5,15), (55,40,95), (2,98,100) in that order
func TestRunSumFanIn_ScriptedScenario(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			// Arrange - operand pairs first, then delays of 4, 2 and 0 units
			rnd := &scriptedRand{values: []int{10, 5, 55, 40, 2, 98, 4, 2, 0}}
			rec := core.NewEventRecorder()
			executor := newTestExecutor(rec, strategy, rnd)

			// Act
			result, err := executor.RunSumFanIn(3)

			// Assert
			if err != nil {
				t.Fatalf("RunSumFanIn failed: %v", err)
			}
			want := []core.SumResult{
				{Index: 0, A: 10, B: 5, Sum: 15},
				{Index: 1, A: 55, B: 40, Sum: 95},
				{Index: 2, A: 2, B: 98, Sum: 100},
			}
			if len(result.Results) != len(want) {
				t.Fatalf("results = %d, want %d", len(result.Results), len(want))
			}
			for i := range want {
				if result.Results[i] != want[i] {
					t.Errorf("result[%d] = %+v, want %+v", i, result.Results[i], want[i])
				}
			}

			ready := rec.Filter(core.EventWorkerBecameReady)
			if len(ready) != 3 {
				t.Fatalf("WorkerBecameReady events = %d, want 3", len(ready))
			}
			if ready[0].Index != 2 {
				t.Errorf("first ready worker = %d, want 2", ready[0].Index)
			}

			computed := rec.Filter(core.EventResultComputed)
			for i, e := range computed {
				if e.Index != i || e.Sum != want[i].Sum {
					t.Errorf("ResultComputed[%d] = %+v, want index %d sum %d", i, e, i, want[i].Sum)
				}
			}
		})
	}
}

// TestRunSumFanIn_ReadyNotifiedOncePerWorker verifies de-duplicated readiness
// Given: 6 workers with random delays
// When: the busy poll observes each future many times
// Then: each index produces exactly one WorkerBecameReady event
func TestRunSumFanIn_ReadyNotifiedOncePerWorker(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			rec := core.NewEventRecorder()
			metrics := newRecordingMetrics()
			executor := core.NewExecutor(&core.ExecutorConfig{
				Observer: rec,
				Metrics:  metrics,
				Rand:     core.NewSeededRand(7),
				TimeUnit: 5 * time.Millisecond,
				Strategy: strategy,
			})

			result, err := executor.RunSumFanIn(6)
			if err != nil {
				t.Fatalf("RunSumFanIn failed: %v", err)
			}

			if len(result.Results) != 6 {
				t.Fatalf("results = %d, want 6", len(result.Results))
			}
			for i, r := range result.Results {
				if r.Index != i {
					t.Errorf("result[%d].Index = %d", i, r.Index)
				}
				if r.Sum != r.A+r.B {
					t.Errorf("result[%d]: %d + %d = %d", i, r.A, r.B, r.Sum)
				}
				if r.A < 0 || r.A >= 100 || r.B < 0 || r.B >= 100 {
					t.Errorf("result[%d] operands out of range: %+v", i, r)
				}
			}

			counts := map[int]int{}
			for _, e := range rec.Filter(core.EventWorkerBecameReady) {
				counts[e.Index]++
			}
			for i := 0; i < 6; i++ {
				if counts[i] != 1 {
					t.Errorf("worker %d ready events = %d, want 1", i, counts[i])
				}
			}

			if result.PollIterations < 6 {
				t.Errorf("PollIterations = %d, want >= 6", result.PollIterations)
			}
			all := rec.Filter(core.EventAllWorkersReady)
			if len(all) != 1 || all[0].Iterations != result.PollIterations {
				t.Errorf("AllWorkersReady = %+v, want one with %d iterations", all, result.PollIterations)
			}
			if metrics.iterations[core.OpSumFanIn] != result.PollIterations {
				t.Errorf("iterations metric = %d, want %d", metrics.iterations[core.OpSumFanIn], result.PollIterations)
			}
			if strategy == core.BlockingWait && result.PollIterations != 6 {
				t.Errorf("blocking wait wake-ups = %d, want 6", result.PollIterations)
			}
		})
	}
}

// TestRunSumFanIn_SeededRunsReproduce verifies determinism under a fixed seed
func TestRunSumFanIn_SeededRunsReproduce(t *testing.T) {
	run := func() []core.SumResult {
		executor := core.NewExecutor(&core.ExecutorConfig{
			Rand:     core.NewSeededRand(1234),
			TimeUnit: time.Millisecond,
			Strategy: core.BlockingWait,
		})
		result, err := executor.RunSumFanIn(5)
		if err != nil {
			t.Fatalf("RunSumFanIn failed: %v", err)
		}
		return result.Results
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("run mismatch at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRunSumFanIn_ZeroWorkers(t *testing.T) {
	rec := core.NewEventRecorder()
	executor := newTestExecutor(rec, core.BusyPoll, core.NewSeededRand(1))

	result, err := executor.RunSumFanIn(0)

	if !errors.Is(err, core.ErrPreconditionViolation) {
		t.Fatalf("error = %v, want ErrPreconditionViolation", err)
	}
	if len(result.Results) != 0 || result.PollIterations != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}

// =============================================================================
// Worker count and demo
// =============================================================================

func TestExecutor_WorkerCount(t *testing.T) {
	metrics := newRecordingMetrics()
	executor := core.NewExecutor(&core.ExecutorConfig{
		Metrics:     metrics,
		Parallelism: func() int { return 4 },
	})

	got, err := executor.WorkerCount(1)
	if err != nil || got != 3 {
		t.Fatalf("WorkerCount(1) = %d, %v; want 3, nil", got, err)
	}

	if _, err := executor.WorkerCount(4); !errors.Is(err, core.ErrPreconditionViolation) {
		t.Fatalf("WorkerCount(4) error = %v, want ErrPreconditionViolation", err)
	}
	if metrics.violations[core.OpComputeWorkerCount] != 1 {
		t.Errorf("violation metric = %d, want 1", metrics.violations[core.OpComputeWorkerCount])
	}
}

// TestExecutor_RunDemo verifies the scripted sequence
// Given: a reported parallelism of 3 and one occupied thread
// When: RunDemo is called
// Then: both runs use 2 workers and the fan-in result has 2 triples
func TestExecutor_RunDemo(t *testing.T) {
	rec := core.NewEventRecorder()
	executor := core.NewExecutor(&core.ExecutorConfig{
		Observer:    rec,
		Rand:        core.NewSeededRand(99),
		TimeUnit:    time.Millisecond,
		Parallelism: func() int { return 3 },
	})

	result, err := executor.RunDemo(core.DemoOptions{
		OccupiedThreads: 1,
		Wait:            10 * time.Millisecond,
		OwnWork:         20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("RunDemo failed: %v", err)
	}
	if len(result.Results) != 2 {
		t.Errorf("results = %d, want 2", len(result.Results))
	}

	launched := rec.Filter(core.EventWorkersLaunched)
	if len(launched) != 2 {
		t.Fatalf("WorkersLaunched events = %d, want 2", len(launched))
	}
	for _, e := range launched {
		if e.Count != 2 {
			t.Errorf("WorkersLaunched count = %d, want 2", e.Count)
		}
	}
	if got := rec.Count(core.EventAllWorkersJoined); got != 2 {
		t.Errorf("AllWorkersJoined events = %d, want 2", got)
	}
}

func TestExecutor_RunDemo_PreconditionLaunchesNothing(t *testing.T) {
	rec := core.NewEventRecorder()
	executor := core.NewExecutor(&core.ExecutorConfig{
		Observer:    rec,
		Parallelism: func() int { return 2 },
	})

	_, err := executor.RunDemo(core.DemoOptions{OccupiedThreads: 2})

	var perr *core.PreconditionError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *core.PreconditionError", err)
	}
	if perr.WorkerCount != 0 || perr.HardwareParallelism != 2 || perr.OccupiedThreads != 2 {
		t.Errorf("PreconditionError = %+v", perr)
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}

func TestParseReadinessStrategy(t *testing.T) {
	tests := map[string]core.ReadinessStrategy{
		"busy-poll":     core.BusyPoll,
		"":              core.BusyPoll,
		"blocking-wait": core.BlockingWait,
		"SELECT":        core.BlockingWait,
	}
	for in, want := range tests {
		got, err := core.ParseReadinessStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseReadinessStrategy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := core.ParseReadinessStrategy("spin"); err == nil {
		t.Error("ParseReadinessStrategy(\"spin\") error = nil")
	}
}

// TestExecutor_Stats verifies activity counters after completed operations
func TestExecutor_Stats(t *testing.T) {
	executor := core.NewExecutor(&core.ExecutorConfig{
		Name:     "stats-exec",
		Rand:     core.NewSeededRand(3),
		TimeUnit: time.Millisecond,
	})

	if err := executor.RunTimedFanOut(2, time.Millisecond, time.Millisecond); err != nil {
		t.Fatalf("RunTimedFanOut failed: %v", err)
	}
	if _, err := executor.RunSumFanIn(3); err != nil {
		t.Fatalf("RunSumFanIn failed: %v", err)
	}
	_ = executor.RunTimedFanOut(-1, 0, 0)

	stats := executor.Stats()
	if stats.Name != "stats-exec" {
		t.Errorf("Name = %q, want stats-exec", stats.Name)
	}
	if stats.ActiveWorkers != 0 {
		t.Errorf("ActiveWorkers = %d, want 0", stats.ActiveWorkers)
	}
	if stats.LaunchedWorkers != 5 {
		t.Errorf("LaunchedWorkers = %d, want 5", stats.LaunchedWorkers)
	}
	if stats.RunningOperations != 0 {
		t.Errorf("RunningOperations = %d, want 0", stats.RunningOperations)
	}
	if stats.CompletedOps != 2 {
		t.Errorf("CompletedOps = %d, want 2", stats.CompletedOps)
	}
	if stats.Violations != 1 {
		t.Errorf("Violations = %d, want 1", stats.Violations)
	}
	if stats.LastOperation != core.OpSumFanIn {
		t.Errorf("LastOperation = %q, want %q", stats.LastOperation, core.OpSumFanIn)
	}
}
