package workerpool

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	gferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
)

var errPoolClosed = fmt.Errorf("cannot submit task: worker pool has been shut down: %w", gferrors.ErrClosed)

// Submit queues fn for execution on p and returns a Future for its outcome.
// It never waits for fn to run. After Shutdown it fails with an error
// wrapping errors.ErrClosed.
func Submit[T any](p *Pool, fn func() (T, error)) (*Future[T], error) {
	if p == nil {
		return nil, gferrors.NewValidationError("workerpool", "pool", nil, "must not be nil")
	}
	if fn == nil {
		return nil, gferrors.NewValidationError("workerpool", "fn", nil, "must not be nil")
	}

	f := newFuture[T](p)
	var value T
	t := &task{
		execute: func() error {
			v, err := fn()
			if err != nil {
				return err
			}
			value = v
			return nil
		},
		complete: func() { f.complete(value) },
		fail:     f.fail,
	}

	if err := p.enqueue(t); err != nil {
		return nil, err
	}
	return f, nil
}

// Go queues a computation that produces no value.
func Go(p *Pool, fn func() error) (*Future[struct{}], error) {
	if fn == nil {
		return nil, gferrors.NewValidationError("workerpool", "fn", nil, "must not be nil")
	}
	return Submit(p, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// ThenApply schedules fn on f's pool. The new task waits for f, then applies
// fn to its value. If f failed, fn is not called and the downstream future
// fails with the same error.
//
// A continuation occupies a worker while it waits for its upstream future.
func ThenApply[T, U any](f *Future[T], fn func(T) (U, error)) (*Future[U], error) {
	if f == nil {
		return nil, gferrors.NewValidationError("workerpool", "future", nil, "must not be nil")
	}
	if fn == nil {
		return nil, gferrors.NewValidationError("workerpool", "fn", nil, "must not be nil")
	}

	return Submit(f.pool, func() (U, error) {
		v, err := f.Get()
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}

func (p *Pool) enqueue(t *task) error {
	t.id = p.nextID.Add(1)
	t.submitted = time.Now()

	p.totalSubmitted.Add(1)
	if !p.queue.push(t) {
		p.totalSubmitted.Add(-1)
		return errPoolClosed
	}

	p.metrics.submitted()
	p.metrics.setQueued(p.queue.len())
	return nil
}

// Shutdown stops accepting tasks and signals the workers to stop once the
// queue has been handled according to the pool's ShutdownPolicy. The
// returned channel is closed when every worker has exited. Calling it again
// returns the same channel.
func (p *Pool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		drain := p.config.ShutdownPolicy == DrainQueue
		if !drain {
			p.cancel()
		}

		pending := p.queue.close(drain)
		for _, t := range pending {
			p.abandon(t)
		}
		p.metrics.setQueued(p.queue.len())

		p.logger.Info("worker pool shutting down",
			"shutdown_policy", p.config.ShutdownPolicy.String(),
			"abandoned", len(pending))

		go func() {
			_ = p.group.Wait()
			p.cancel()
			p.logger.Info("worker pool stopped",
				"completed", p.totalCompleted.Load(),
				"failed", p.totalFailed.Load())
			close(p.stopped)
		}()
	})

	return p.stopped
}

// ShutdownWithTimeout calls Shutdown and waits up to timeout for the workers
// to exit. On expiry the error wraps errors.ErrTimeout; the workers keep
// finishing in the background.
func (p *Pool) ShutdownWithTimeout(timeout time.Duration) error {
	done := p.Shutdown()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("worker pool shutdown after %v: %w", timeout, gferrors.ErrTimeout)
	}
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// QueueSize returns the number of tasks waiting for a worker.
func (p *Pool) QueueSize() int {
	return p.queue.len()
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *Pool) ActiveWorkers() int {
	return int(p.activeWorkers.Load())
}

// TotalSubmitted returns the number of tasks accepted by the pool.
func (p *Pool) TotalSubmitted() int64 {
	return p.totalSubmitted.Load()
}

// TotalCompleted returns the number of tasks whose computation succeeded.
func (p *Pool) TotalCompleted() int64 {
	return p.totalCompleted.Load()
}

// TotalFailed returns the number of tasks whose computation failed or panicked.
func (p *Pool) TotalFailed() int64 {
	return p.totalFailed.Load()
}

// TotalAbandoned returns the number of tasks discarded by AbandonQueue.
func (p *Pool) TotalAbandoned() int64 {
	return p.totalAbandoned.Load()
}

// IsShutdown reports whether Shutdown has been called.
func (p *Pool) IsShutdown() bool {
	return p.queue.isClosed()
}

// WorkerStates returns a snapshot of each worker's state, indexed by worker ID.
func (p *Pool) WorkerStates() []WorkerState {
	states := make([]WorkerState, len(p.workers))
	for i, w := range p.workers {
		states[i] = WorkerState(w.state.Load())
	}
	return states
}

func (p *Pool) abandon(t *task) {
	p.totalAbandoned.Add(1)
	p.metrics.abandoned()
	p.logger.Warn("task abandoned", "task_id", t.id)
	t.fail(ErrTaskAbandoned)
}

// run is the main loop for a worker. started is called once the worker is
// ready to take tasks.
func (w *worker) run(started func()) {
	p := w.pool

	w.setState(StateStarting)
	if h := p.config.OnWorkerStart; h != nil {
		p.callHook("OnWorkerStart", func() { h(w.id) })
	}
	w.setState(StateRunning)
	p.logger.Debug("worker started", "worker_id", w.id)
	started()

	for {
		t, ok := p.queue.pop()
		if !ok {
			break
		}
		w.executeTask(t)
	}

	w.setState(StateStopping)
	if h := p.config.OnWorkerStop; h != nil {
		p.callHook("OnWorkerStop", func() { h(w.id) })
	}
	w.setState(StateStopped)
	p.logger.Debug("worker stopped", "worker_id", w.id)
}

func (w *worker) setState(s WorkerState) {
	w.state.Store(int32(s))
}

// executeTask runs one task and publishes its outcome. Counters, metrics and
// hooks are updated before the future is completed.
func (w *worker) executeTask(t *task) {
	p := w.pool

	w.setState(StateExecuting)
	p.metrics.setActive(int(p.activeWorkers.Add(1)))
	p.metrics.setQueued(p.queue.len())
	defer func() {
		p.metrics.setActive(int(p.activeWorkers.Add(-1)))
		w.setState(StateRunning)
	}()

	if p.config.Limiter != nil {
		if err := p.config.Limiter.Wait(p.ctx); err != nil {
			if p.ctx.Err() != nil {
				p.abandon(t)
				return
			}
			w.finish(t, fmt.Errorf("rate limiter: %w", err), 0)
			return
		}
	}

	p.metrics.queueWait(time.Since(t.submitted))
	if h := p.config.OnTaskStart; h != nil {
		p.callHook("OnTaskStart", func() { h(w.id, t.id) })
	}

	start := time.Now()
	err := w.safeExecute(t)
	w.finish(t, err, time.Since(start))
}

// safeExecute runs the computation, converting a panic into a *PanicError.
func (w *worker) safeExecute(t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}

			if h := w.pool.config.PanicHandler; h != nil {
				w.pool.callHook("PanicHandler", func() { h(t.id, r) })
			}
			w.pool.logger.Error("task panicked",
				"task_id", t.id,
				"worker_id", w.id,
				"panic", fmt.Sprint(r))
		}
	}()

	return t.execute()
}

func (w *worker) finish(t *task, err error, duration time.Duration) {
	p := w.pool

	if err != nil {
		err = gferrors.NewExecutionError(err)
		p.totalFailed.Add(1)
		p.metrics.failed(duration)

		var perr *PanicError
		if !errors.As(err, &perr) {
			p.logger.Debug("task failed", "task_id", t.id, "worker_id", w.id, "error", err)
		}
	} else {
		p.totalCompleted.Add(1)
		p.metrics.completed(duration)
	}

	if h := p.config.OnTaskComplete; h != nil {
		res := Result{
			TaskID:   t.id,
			WorkerID: w.id,
			Err:      err,
			Duration: duration,
		}
		p.callHook("OnTaskComplete", func() { h(w.id, res) })
	}

	if err != nil {
		t.fail(err)
	} else {
		t.complete()
	}
}

// callHook runs a user callback. A panic in the callback is logged and
// swallowed so the worker keeps running and the task's future still completes.
func (p *Pool) callHook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("hook panicked", "hook", name, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
