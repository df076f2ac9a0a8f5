package core

import (
	"fmt"
	"sync"
)

// Observer receives the discrete events emitted by an Executor.
//
// WorkerFinished is called from worker goroutines; every other method is called
// from the orchestrating goroutine. Implementations must be safe for concurrent use.
type Observer interface {
	WorkersLaunched(count int)
	WorkerFinished(index int)
	OwnWorkStarted()
	OwnWorkFinished()
	WorkerBecameReady(index int)
	AllWorkersReady(pollIterations uint64)
	ResultComputed(index, a, b, sum int)
	AllWorkersJoined(count int)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) WorkersLaunched(count int)             {}
func (NopObserver) WorkerFinished(index int)              {}
func (NopObserver) OwnWorkStarted()                       {}
func (NopObserver) OwnWorkFinished()                      {}
func (NopObserver) WorkerBecameReady(index int)           {}
func (NopObserver) AllWorkersReady(pollIterations uint64) {}
func (NopObserver) ResultComputed(index, a, b, sum int)   {}
func (NopObserver) AllWorkersJoined(count int)            {}

// LoggingObserver writes every event through a Logger.
type LoggingObserver struct {
	logger Logger
}

// NewLoggingObserver creates an Observer that logs at Info level.
func NewLoggingObserver(logger Logger) *LoggingObserver {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) WorkersLaunched(count int) {
	o.logger.Info("launched workers", F("count", count))
}

func (o *LoggingObserver) WorkerFinished(index int) {
	o.logger.Info("worker done waiting", F("worker", index))
}

func (o *LoggingObserver) OwnWorkStarted() {
	o.logger.Info("starting own work")
}

func (o *LoggingObserver) OwnWorkFinished() {
	o.logger.Info("own work finished")
}

func (o *LoggingObserver) WorkerBecameReady(index int) {
	o.logger.Info("worker is ready", F("worker", index))
}

func (o *LoggingObserver) AllWorkersReady(pollIterations uint64) {
	o.logger.Info("all workers are ready", F("poll_iterations", pollIterations))
}

func (o *LoggingObserver) ResultComputed(index, a, b, sum int) {
	o.logger.Info(fmt.Sprintf("sum of %d and %d is %d", a, b, sum), F("worker", index))
}

func (o *LoggingObserver) AllWorkersJoined(count int) {
	o.logger.Info("joined all workers", F("count", count))
}

// =============================================================================
// EventRecorder: in-memory Observer for tests and inspection
// =============================================================================

// EventKind identifies an Observer callback.
type EventKind int

const (
	EventWorkersLaunched EventKind = iota
	EventWorkerFinished
	EventOwnWorkStarted
	EventOwnWorkFinished
	EventWorkerBecameReady
	EventAllWorkersReady
	EventResultComputed
	EventAllWorkersJoined
)

func (k EventKind) String() string {
	switch k {
	case EventWorkersLaunched:
		return "WorkersLaunched"
	case EventWorkerFinished:
		return "WorkerFinished"
	case EventOwnWorkStarted:
		return "OwnWorkStarted"
	case EventOwnWorkFinished:
		return "OwnWorkFinished"
	case EventWorkerBecameReady:
		return "WorkerBecameReady"
	case EventAllWorkersReady:
		return "AllWorkersReady"
	case EventResultComputed:
		return "ResultComputed"
	case EventAllWorkersJoined:
		return "AllWorkersJoined"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one recorded Observer callback. Fields not carried by Kind are zero.
type Event struct {
	Kind       EventKind
	Index      int
	Count      int
	Iterations uint64
	A, B, Sum  int
}

// EventRecorder stores every event it observes, in arrival order.
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

// NewEventRecorder creates an empty EventRecorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *EventRecorder) WorkersLaunched(count int) {
	r.add(Event{Kind: EventWorkersLaunched, Count: count})
}

func (r *EventRecorder) WorkerFinished(index int) {
	r.add(Event{Kind: EventWorkerFinished, Index: index})
}

func (r *EventRecorder) OwnWorkStarted() {
	r.add(Event{Kind: EventOwnWorkStarted})
}

func (r *EventRecorder) OwnWorkFinished() {
	r.add(Event{Kind: EventOwnWorkFinished})
}

func (r *EventRecorder) WorkerBecameReady(index int) {
	r.add(Event{Kind: EventWorkerBecameReady, Index: index})
}

func (r *EventRecorder) AllWorkersReady(pollIterations uint64) {
	r.add(Event{Kind: EventAllWorkersReady, Iterations: pollIterations})
}

func (r *EventRecorder) ResultComputed(index, a, b, sum int) {
	r.add(Event{Kind: EventResultComputed, Index: index, A: a, B: b, Sum: sum})
}

func (r *EventRecorder) AllWorkersJoined(count int) {
	r.add(Event{Kind: EventAllWorkersJoined, Count: count})
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Filter returns the recorded events of the given kind.
func (r *EventRecorder) Filter(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events of the given kind were recorded.
func (r *EventRecorder) Count(kind EventKind) int {
	return len(r.Filter(kind))
}

// Reset drops every recorded event.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
