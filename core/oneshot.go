package core

import (
	"context"
	"sync/atomic"
)

// =============================================================================
// OneShot: single-producer / single-consumer value handoff
// =============================================================================

type oneShot[T any] struct {
	done  chan struct{}
	value T
	set   atomic.Bool
}

// Promise is the producer end of a one-shot channel.
// Ownership is handed to exactly one goroutine, which calls Set once.
type Promise[T any] struct {
	state *oneShot[T]
}

// Future is the consumer end of a one-shot channel.
// It may be polled any number of times but its value is retrieved once.
type Future[T any] struct {
	state     *oneShot[T]
	retrieved atomic.Bool
}

// NewOneShot creates a connected producer/consumer pair.
func NewOneShot[T any]() (*Promise[T], *Future[T]) {
	state := &oneShot[T]{done: make(chan struct{})}
	return &Promise[T]{state: state}, &Future[T]{state: state}
}

// Set publishes v to the consumer. The write happens-before any observation of
// readiness on the Future. Returns ErrPromiseAlreadySet on a second call.
func (p *Promise[T]) Set(v T) error {
	if !p.state.set.CompareAndSwap(false, true) {
		return ErrPromiseAlreadySet
	}
	p.state.value = v
	close(p.state.done)
	return nil
}

// IsReady reports whether the value has been published. It never blocks.
func (f *Future[T]) IsReady() bool {
	select {
	case <-f.state.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the value is published.
func (f *Future[T]) Done() <-chan struct{} {
	return f.state.done
}

// Wait blocks until the value is published or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) error {
	select {
	case <-f.state.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get blocks until the value is published and returns it.
// Only the first call succeeds; later calls return ErrFutureAlreadyRetrieved.
func (f *Future[T]) Get() (T, error) {
	if !f.retrieved.CompareAndSwap(false, true) {
		var zero T
		return zero, ErrFutureAlreadyRetrieved
	}
	<-f.state.done
	return f.state.value, nil
}
