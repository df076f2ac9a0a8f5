package core

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"
)

// ThreadOptions controls how SpawnThread runs its body.
type ThreadOptions struct {
	// LockOSThread wires the goroutine to its own OS thread for its whole life.
	LockOSThread bool

	// OnPanic receives a recovered panic from body. The thread is still
	// considered finished afterwards, so Join never hangs.
	OnPanic func(workerID int, panicInfo any, stackTrace []byte)
}

// Thread is the handle of one spawned worker.
// It must be joined by its owner before the owner returns.
type Thread struct {
	id     int
	done   chan struct{}
	joined atomic.Bool
}

// SpawnThread starts body on a fresh goroutine and returns its handle.
func SpawnThread(id int, opts ThreadOptions, body func()) *Thread {
	t := &Thread{id: id, done: make(chan struct{})}
	go t.run(opts, body)
	return t
}

func (t *Thread) run(opts ThreadOptions, body func()) {
	if opts.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil && opts.OnPanic != nil {
			opts.OnPanic(t.id, r, debug.Stack())
		}
	}()
	body()
}

// ID returns the worker index the thread was spawned with.
func (t *Thread) ID() int {
	return t.id
}

// Finished reports whether the body has returned. It never blocks.
func (t *Thread) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Join blocks until the body has returned.
func (t *Thread) Join() {
	<-t.done
	t.joined.Store(true)
}

// Joinable reports whether the thread still has to be joined.
func (t *Thread) Joinable() bool {
	return !t.joined.Load()
}

// JoinAll joins every thread in order. Nil entries are skipped.
func JoinAll(threads []*Thread) {
	for _, t := range threads {
		if t != nil {
			t.Join()
		}
	}
}
