package workerpool

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	gferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
)

// Future is a write-once cell holding the eventual outcome of a submitted
// computation. It is created empty by Submit, filled exactly once by the
// worker that ran the computation, and may be read any number of times
// from any goroutine.
type Future[T any] struct {
	pool      *Pool
	done      chan struct{}
	completed atomic.Bool

	value T
	err   error
}

func newFuture[T any](p *Pool) *Future[T] {
	return &Future[T]{
		pool: p,
		done: make(chan struct{}),
	}
}

func (f *Future[T]) complete(value T) {
	if !f.completed.CompareAndSwap(false, true) {
		panic("workerpool: future completed twice")
	}
	f.value = value
	close(f.done)
}

func (f *Future[T]) fail(err error) {
	if !f.completed.CompareAndSwap(false, true) {
		panic("workerpool: future completed twice")
	}
	f.err = err
	close(f.done)
}

// IsReady reports whether the outcome is available. It never blocks.
func (f *Future[T]) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed once the outcome is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the outcome is available and returns it.
// A failed computation is reported as an *errors.ExecutionError whose
// cause is the error the computation returned.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// GetWithContext is like Get but gives up when ctx is done, returning
// ctx.Err(). Giving up does not affect the computation or the future.
func (f *Future[T]) GetWithContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// GetWithTimeout is like Get but gives up after timeout with an error
// wrapping errors.ErrTimeout.
func (f *Future[T]) GetWithTimeout(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		var zero T
		return zero, fmt.Errorf("result not ready after %v: %w", timeout, gferrors.ErrTimeout)
	}
}

// Then schedules fn on the future's pool once the outcome is available.
// It is the same-type form of ThenApply.
func (f *Future[T]) Then(fn func(T) (T, error)) (*Future[T], error) {
	return ThenApply(f, fn)
}
