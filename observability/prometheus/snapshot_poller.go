package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/LoshkinOleg/TestingMultithreading/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExecutorSnapshotProvider provides current executor stats snapshots.
type ExecutorSnapshotProvider interface {
	Stats() core.ExecutorStats
}

// SnapshotPoller periodically exports executor Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	executorsMu sync.RWMutex
	executors   map[string]ExecutorSnapshotProvider

	activeWorkers   *prom.GaugeVec
	launchedWorkers *prom.GaugeVec
	runningOps      *prom.GaugeVec
	completedOps    *prom.GaugeVec
	violations      *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	activeWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fanout",
		Name:      "executor_active_workers",
		Help:      "Worker threads currently running per executor.",
	}, []string{"executor"})
	launchedWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fanout",
		Name:      "executor_launched_workers",
		Help:      "Worker threads launched so far per executor.",
	}, []string{"executor"})
	runningOps := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fanout",
		Name:      "executor_running_operations",
		Help:      "Fan-out/fan-in operations in progress per executor.",
	}, []string{"executor"})
	completedOps := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fanout",
		Name:      "executor_completed_operations",
		Help:      "Fan-out/fan-in operations completed per executor.",
	}, []string{"executor"})
	violations := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "fanout",
		Name:      "executor_precondition_violations",
		Help:      "Rejected worker counts per executor.",
	}, []string{"executor"})

	var err error
	if activeWorkers, err = registerCollector(reg, activeWorkers); err != nil {
		return nil, err
	}
	if launchedWorkers, err = registerCollector(reg, launchedWorkers); err != nil {
		return nil, err
	}
	if runningOps, err = registerCollector(reg, runningOps); err != nil {
		return nil, err
	}
	if completedOps, err = registerCollector(reg, completedOps); err != nil {
		return nil, err
	}
	if violations, err = registerCollector(reg, violations); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:        interval,
		executors:       make(map[string]ExecutorSnapshotProvider),
		activeWorkers:   activeWorkers,
		launchedWorkers: launchedWorkers,
		runningOps:      runningOps,
		completedOps:    completedOps,
		violations:      violations,
	}, nil
}

// AddExecutor adds or replaces an executor snapshot provider by name.
func (p *SnapshotPoller) AddExecutor(name string, provider ExecutorSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "executor")
	p.executorsMu.Lock()
	p.executors[name] = provider
	p.executorsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	done := p.done
	p.stateMu.Unlock()

	go p.loop(pollCtx, done)
}

// Stop stops periodic polling and takes one final snapshot; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	p.collectOnce()

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.executorsMu.RLock()
	defer p.executorsMu.RUnlock()
	for name, provider := range p.executors {
		stats := provider.Stats()
		p.activeWorkers.WithLabelValues(name).Set(float64(stats.ActiveWorkers))
		p.launchedWorkers.WithLabelValues(name).Set(float64(stats.LaunchedWorkers))
		p.runningOps.WithLabelValues(name).Set(float64(stats.RunningOperations))
		p.completedOps.WithLabelValues(name).Set(float64(stats.CompletedOps))
		p.violations.WithLabelValues(name).Set(float64(stats.Violations))
	}
}
