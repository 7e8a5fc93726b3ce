/*
Package scheduling provides task execution primitives built around a
future-returning worker pool.

  - workerpool: fixed set of workers fed by one FIFO queue; Submit returns a
    Future, ThenApply chains computations on the same pool
  - scheduler: cron expressions that submit computations to a worker pool

Worker Pool:

	pool, err := workerpool.New(4)
	if err != nil {
		return err
	}
	defer func() { <-pool.Shutdown() }()

	f, _ := workerpool.Submit(pool, func() (int, error) { return 1, nil })
	v, err := f.Get()

Scheduler:

	s, _ := scheduler.New(scheduler.Config{Pool: pool})
	_ = scheduler.Schedule(s, "report", "@every 1m", buildReport)
	s.Start()
	defer s.Stop()
*/
package scheduling
