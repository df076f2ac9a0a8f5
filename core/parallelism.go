package core

import "runtime"

// HardwareParallelism reports how many threads the platform can schedule at once
// for this process. On Linux it honours the CPU affinity mask (taskset, cgroups
// cpusets); elsewhere it is runtime.NumCPU.
func HardwareParallelism() int {
	if n := platformParallelism(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// ComputeWorkerCount returns HardwareParallelism() - occupiedThreads.
//
// The subtraction is signed: if occupiedThreads meets or exceeds the available
// parallelism (or the platform reports none) the result is a *PreconditionError
// instead of a wrapped-around count.
func ComputeWorkerCount(occupiedThreads int) (int, error) {
	return ComputeWorkerCountFor(HardwareParallelism(), occupiedThreads)
}

// ComputeWorkerCountFor is ComputeWorkerCount with an explicit parallelism.
func ComputeWorkerCountFor(parallelism, occupiedThreads int) (int, error) {
	count := parallelism - occupiedThreads
	if occupiedThreads < 0 || parallelism <= 0 || count <= 0 {
		return 0, &PreconditionError{
			HardwareParallelism: parallelism,
			OccupiedThreads:     occupiedThreads,
			WorkerCount:         count,
		}
	}
	return count, nil
}

// MustComputeWorkerCount is like ComputeWorkerCount but panics on a violation.
func MustComputeWorkerCount(occupiedThreads int) int {
	n, err := ComputeWorkerCount(occupiedThreads)
	if err != nil {
		panic(err)
	}
	return n
}

func checkWorkerCount(op string, workerCount int) error {
	if workerCount <= 0 {
		return &PreconditionError{Op: op, WorkerCount: workerCount}
	}
	return nil
}
