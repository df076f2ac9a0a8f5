package core

import (
	"errors"
	"fmt"
)

// ErrPreconditionViolation is returned when the derived worker count is not positive.
// The executor cannot run with zero workers, so callers should treat it as fatal.
var ErrPreconditionViolation = errors.New("precondition violation")

var (
	// ErrPromiseAlreadySet is returned by Promise.Set on a second write.
	ErrPromiseAlreadySet = errors.New("promise already set")

	// ErrFutureAlreadyRetrieved is returned by Future.Get on a second read.
	ErrFutureAlreadyRetrieved = errors.New("future value already retrieved")
)

// PreconditionError describes a non-positive worker count.
type PreconditionError struct {
	// Op names the operation that rejected the count.
	Op                  string
	HardwareParallelism int
	OccupiedThreads     int
	WorkerCount         int
}

func (e *PreconditionError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v: worker count %d must be positive",
			e.Op, ErrPreconditionViolation, e.WorkerCount)
	}
	return fmt.Sprintf("compute worker count: %v: hardware parallelism %d - occupied threads %d = %d, must be positive",
		ErrPreconditionViolation, e.HardwareParallelism, e.OccupiedThreads, e.WorkerCount)
}

func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionViolation
}
