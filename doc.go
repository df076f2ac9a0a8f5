// Package fanout provides a thread-count-aware fan-out/fan-in executor.
//
// The executor sizes its work from the hardware parallelism left over after the
// threads the caller already occupies, launches one fresh goroutine per worker
// and always joins every worker before returning.
//
// # Quick Start
//
//	fanout.InitGlobalExecutor(nil)
//	defer fanout.ShutdownGlobalExecutor()
//
//	n, err := fanout.ComputeWorkerCount(1) // one thread is ours
//	if err != nil {
//		log.Fatal(err) // ErrPreconditionViolation: nothing left to run on
//	}
//
//	// Workers sleep one second while we work for three, then we join them.
//	_ = fanout.RunTimedFanOut(n, time.Second, 3*time.Second)
//
//	// Workers sum random pairs and hand results back through one-shot channels.
//	result, _ := fanout.RunSumFanIn(n)
//	for _, r := range result.Results {
//		fmt.Printf("%d + %d = %d\n", r.A, r.B, r.Sum)
//	}
//
// # Key Concepts
//
// Worker count: HardwareParallelism() - occupied threads, checked as a signed value.
// A result <= 0 is a PreconditionError and no worker is launched.
//
// One-shot channel: core.NewOneShot returns a Promise (written once by the worker)
// and a Future (polled without blocking, read once by the orchestrator).
//
// Readiness strategy: BusyPoll spins over the pending futures and reports how many
// checks it made. BlockingWait parks in a select until a worker completes.
//
// Observer: every step is reported to an injected core.Observer; nothing is printed
// by the library itself.
//
// # Determinism
//
// Fan-in inputs come from the configured RandSource. Use NewSeededRand (or any
// type with IntN) to make runs reproducible.
package fanout
