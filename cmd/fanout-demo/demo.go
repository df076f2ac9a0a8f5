package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/LoshkinOleg/TestingMultithreading/core"
	obs "github.com/LoshkinOleg/TestingMultithreading/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// demoSettings is the parsed command line.
type demoSettings struct {
	demo          core.DemoOptions
	metricsAddr   string
	metricsLinger time.Duration
}

func demoAction(c *cli.Context) error {
	// 1. Get flags
	level, err := core.ParseLogLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	strategy, err := core.ParseReadinessStrategy(c.String("strategy"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	seed := c.Uint64("seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	logger := core.NewLeveledLogger(level, log.New(c.App.Writer, "", log.LstdFlags))
	config := &core.ExecutorConfig{
		Name:         "fanout-demo",
		Observer:     core.NewLoggingObserver(logger),
		Logger:       logger,
		Rand:         core.NewSeededRand(seed),
		TimeUnit:     c.Duration("time-unit"),
		Strategy:     strategy,
		LockOSThread: c.Bool("lock-os-thread"),
	}
	settings := demoSettings{
		demo: core.DemoOptions{
			OccupiedThreads: c.Int("occupied-threads"),
			Wait:            c.Duration("wait"),
			OwnWork:         c.Duration("own-work"),
		},
		metricsAddr:   c.String("metrics-addr"),
		metricsLinger: c.Duration("metrics-linger"),
	}
	logger.Debug("demo configured", core.F("seed", seed), core.F("strategy", strategy))

	// 2. Run
	var result core.FanInResult
	if settings.metricsAddr == "" {
		result, err = core.NewExecutor(config).RunDemo(settings.demo)
	} else {
		result, err = runWithMetrics(c.Context, config, settings, logger)
	}

	// 3. Report
	var perr *core.PreconditionError
	if errors.As(err, &perr) {
		return cli.Exit(fmt.Sprintf("fatal: %v", perr), 1)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("demo failed: %v", err), 1)
	}

	fmt.Fprintf(c.App.Writer, "All threads are ready! Main thread waited through: %d iterations.\n", result.PollIterations)
	for _, r := range result.Results {
		fmt.Fprintf(c.App.Writer, "Sum of %d and %d is: %d\n", r.A, r.B, r.Sum)
	}
	return nil
}

// runWithMetrics serves /metrics while the demo runs, then shuts the server down.
func runWithMetrics(ctx context.Context, config *core.ExecutorConfig, settings demoSettings, logger core.Logger) (core.FanInResult, error) {
	reg := prom.NewRegistry()
	exporter, err := obs.NewMetricsExporter("fanout", reg, obs.ExporterOptions{})
	if err != nil {
		return core.FanInResult{}, err
	}
	poller, err := obs.NewSnapshotPoller(reg, 100*time.Millisecond)
	if err != nil {
		return core.FanInResult{}, err
	}

	config.Metrics = exporter
	executor := core.NewExecutor(config)
	poller.AddExecutor(executor.Name(), executor)

	listener, err := net.Listen("tcp", settings.metricsAddr)
	if err != nil {
		return core.FanInResult{}, fmt.Errorf("listen %s: %w", settings.metricsAddr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("serving metrics", core.F("addr", listener.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	poller.Start(gctx)
	defer poller.Stop()

	g.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var result core.FanInResult
	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		var runErr error
		result, runErr = executor.RunDemo(settings.demo)
		if runErr != nil {
			return runErr
		}
		if settings.metricsLinger > 0 {
			select {
			case <-time.After(settings.metricsLinger):
			case <-gctx.Done():
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.FanInResult{}, err
	}
	return result, nil
}
