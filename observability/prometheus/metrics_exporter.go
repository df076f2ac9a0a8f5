package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/LoshkinOleg/TestingMultithreading/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64

	// IterationBuckets bounds the poll-iteration histogram. Busy polling easily
	// reaches millions of checks, so the default buckets are exponential.
	IterationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	workersLaunchedTotal   *prom.CounterVec
	taskDurationSeconds    *prom.HistogramVec
	taskPanicTotal         *prom.CounterVec
	pollIterations         *prom.HistogramVec
	preconditionViolations *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "fanout"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}
	iterBuckets := opts.IterationBuckets
	if len(iterBuckets) == 0 {
		iterBuckets = prom.ExponentialBuckets(1, 10, 10)
	}

	launchedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "workers_launched_total",
		Help:      "Total number of worker threads launched.",
	}, []string{"op"})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Worker execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"op"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of worker panics.",
	}, []string{"op"})
	iterationsVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_iterations",
		Help:      "Readiness checks performed per fan-in.",
		Buckets:   iterBuckets,
	}, []string{"op"})
	violationVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "precondition_violations_total",
		Help:      "Total number of rejected worker counts.",
	}, []string{"op"})

	var err error
	if launchedVec, err = registerCollector(reg, launchedVec); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if iterationsVec, err = registerCollector(reg, iterationsVec); err != nil {
		return nil, err
	}
	if violationVec, err = registerCollector(reg, violationVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		workersLaunchedTotal:   launchedVec,
		taskDurationSeconds:    durationVec,
		taskPanicTotal:         panicVec,
		pollIterations:         iterationsVec,
		preconditionViolations: violationVec,
	}, nil
}

// RecordWorkersLaunched records launched worker counts.
func (m *MetricsExporter) RecordWorkersLaunched(op string, count int) {
	if m == nil {
		return
	}
	m.workersLaunchedTotal.WithLabelValues(normalizeLabel(op, "unknown")).Add(float64(count))
}

// RecordTaskDuration records worker execution duration.
func (m *MetricsExporter) RecordTaskDuration(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(op, "unknown")).Observe(duration.Seconds())
}

// RecordTaskPanic records worker panic events.
func (m *MetricsExporter) RecordTaskPanic(op string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(op, "unknown")).Inc()
}

// RecordPollIterations records the readiness checks of one fan-in.
func (m *MetricsExporter) RecordPollIterations(op string, iterations uint64) {
	if m == nil {
		return
	}
	m.pollIterations.WithLabelValues(normalizeLabel(op, "unknown")).Observe(float64(iterations))
}

// RecordPreconditionViolation records a rejected worker count.
func (m *MetricsExporter) RecordPreconditionViolation(op string) {
	if m == nil {
		return
	}
	m.preconditionViolations.WithLabelValues(normalizeLabel(op, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
