package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

const envPrefix = "FANOUT_"

func newApp() *cli.App {
	return &cli.App{
		Name:  "fanout-demo",
		Usage: "launch bounded worker threads, wait on them, and collect their results",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "occupied-threads",
				Aliases: []string{"o"},
				Value:   1,
				Usage:   "threads already in use by this program, subtracted from hardware parallelism",
				EnvVars: []string{envPrefix + "OCCUPIED_THREADS"},
			},
			&cli.DurationFlag{
				Name:    "wait",
				Value:   time.Second,
				Usage:   "how long each fan-out worker waits",
				EnvVars: []string{envPrefix + "WAIT"},
			},
			&cli.DurationFlag{
				Name:    "own-work",
				Value:   3 * time.Second,
				Usage:   "how long the main thread works during the fan-out",
				EnvVars: []string{envPrefix + "OWN_WORK"},
			},
			&cli.DurationFlag{
				Name:    "time-unit",
				Value:   time.Second,
				Usage:   "unit of the random [0, 5) fan-in worker delay",
				EnvVars: []string{envPrefix + "TIME_UNIT"},
			},
			&cli.Uint64Flag{
				Name:    "seed",
				Usage:   "seed for fan-in inputs (0 picks a time-based seed)",
				EnvVars: []string{envPrefix + "SEED"},
			},
			&cli.StringFlag{
				Name:    "strategy",
				Value:   "busy-poll",
				Usage:   "fan-in readiness strategy: busy-poll or blocking-wait",
				EnvVars: []string{envPrefix + "STRATEGY"},
			},
			&cli.BoolFlag{
				Name:    "lock-os-thread",
				Usage:   "run every worker on its own dedicated OS thread",
				EnvVars: []string{envPrefix + "LOCK_OS_THREAD"},
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "serve Prometheus metrics on this address (e.g. :2112); empty disables",
				EnvVars: []string{envPrefix + "METRICS_ADDR"},
			},
			&cli.DurationFlag{
				Name:    "metrics-linger",
				Usage:   "keep the metrics endpoint up this long after the demo finishes",
				EnvVars: []string{envPrefix + "METRICS_LINGER"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{envPrefix + "LOG_LEVEL"},
			},
		},
		Action: demoAction,
	}
}
