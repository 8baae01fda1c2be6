// Package task wraps background work the caller may want to await later,
// such as session persistence after sign-in.
package task

import (
	"context"
	"sync"
)

// Handle tracks one background function.
type Handle struct {
	done chan struct{}
	once sync.Once
	err  error
}

// Go runs fn in its own goroutine with ctx.
func Go(ctx context.Context, fn func(ctx context.Context) error) *Handle {
	h := &Handle{done: make(chan struct{})}
	go func() {
		h.finish(fn(ctx))
	}()
	return h
}

// Completed returns a handle that is already finished with err.
func Completed(err error) *Handle {
	h := &Handle{done: make(chan struct{})}
	h.finish(err)
	return h
}

func (h *Handle) finish(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

// Done is closed once the work has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) Finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Err is the result of the work, nil while it is still running.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the work finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
