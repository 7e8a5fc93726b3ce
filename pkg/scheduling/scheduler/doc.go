/*
Package scheduler submits computations to a worker pool on cron schedules.

Each firing calls workerpool.Submit with the registered computation, so
scheduled work shares the pool's workers, queue, limiter and metrics with
everything else submitted to it. The scheduler itself never runs user code
beyond the optional WithOnSubmit callback.

Basic Usage:

	pool, _ := workerpool.New(4)
	defer func() { <-pool.Shutdown() }()

	s, err := scheduler.New(scheduler.Config{Pool: pool})
	if err != nil {
		return err
	}

	err = scheduler.Schedule(s, "cleanup", "@every 10m", purgeExpired,
		scheduler.WithSkipIfStillRunning(),
		scheduler.WithOnSubmit(func(f *workerpool.Future[int]) {
			go func() {
				if n, err := f.Get(); err == nil {
					log.Printf("purged %d rows", n)
				}
			}()
		}),
	)

	s.Start()
	defer func() { <-s.Stop() }()

Expressions:

Standard five-field cron expressions are accepted, plus descriptors such as
@hourly, @daily and @every 1h30m. Set Config.WithSeconds to require a
leading seconds field. Expressions are evaluated in Config.Location.

Skips:

A firing does not submit when the pool has been shut down, or when
WithSkipIfStillRunning is set and the previous future is not ready. Skips
are logged at Warn and counted in the scheduler_skips_total metric.
*/
package scheduler
