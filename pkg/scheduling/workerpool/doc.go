/*
Package workerpool runs computations on a fixed set of worker goroutines and
hands back futures for their results.

A pool owns N workers and one unbounded FIFO queue. Submitting a computation
appends a task to the queue and returns immediately with a Future; any idle
worker takes the oldest task, runs it and writes the outcome into the future
exactly once. Callers block only when they ask a future for its value.

Basic usage:

	pool, err := workerpool.New(4)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { <-pool.Shutdown() }()

	f, err := workerpool.Submit(pool, func() (int, error) {
		return 3, nil
	})
	if err != nil {
		log.Fatal(err) // pool already shut down
	}

	v, err := f.Get() // 3, nil

Futures:

A Future can be polled with IsReady, waited on with Get, or selected on via
Done. GetWithContext and GetWithTimeout bound the wait without touching the
computation:

	v, err := f.GetWithTimeout(time.Second)
	if errors.Is(err, gferrors.ErrTimeout) {
		// still running
	}

A computation that returns an error, or panics, leaves its future failed.
Get then returns an *errors.ExecutionError whose cause is the original error
(a *PanicError for panics), so both of these hold:

	errors.Is(err, original)
	gferrors.IsExecutionError(err)

Chaining:

ThenApply schedules a follow-up computation on the same pool. It waits for
the upstream future and transforms its value; an upstream failure is passed
through unchanged and the function is never called:

	g, _ := workerpool.ThenApply(f, func(v int) (string, error) {
		return strconv.Itoa(v * 3), nil
	})

Future.Then is the same-type shorthand. A waiting continuation occupies a
worker, so very long chains on small pools trade throughput for simplicity.

Shutdown:

Shutdown stops accepting tasks (Submit and ThenApply then fail with an error
wrapping errors.ErrClosed) and returns a channel that closes once every
worker has exited. What happens to queued tasks depends on
Config.ShutdownPolicy:

  - DrainQueue (default): queued tasks still run, every future completes.
  - AbandonQueue: queued tasks are discarded and their futures fail with
    ErrTaskAbandoned. Tasks already executing finish normally.

Configuration Options:

	pool, err := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount:    8,
		ShutdownPolicy: workerpool.AbandonQueue,
		Name:           "thumbnails",
		Logger:         slog.Default(),
		Metrics:        metrics.Config{Enabled: true, Registry: reg},
		Limiter:        rate.NewLimiter(100, 10),
		OnTaskComplete: func(workerID int, r workerpool.Result) {
			// per-task accounting
		},
	})

Limiter accepts a *rate.Limiter or the Redis-backed limiter from
pkg/ratelimit/distributed, so that several processes share one budget.
*/
package workerpool
