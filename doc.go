/*
Package taskflow provides a future-returning worker pool for Go applications,
with cron submission and a Redis-shared execution budget around it.

Task Execution (pkg/scheduling):
  - workerpool: fixed workers, one FIFO queue, futures and chained computations
  - scheduler: cron expressions that submit computations to a pool

Rate Limiting (pkg/ratelimit):
  - distributed: fixed-window limiter in Redis, usable as a pool throttle

Supporting packages:
  - metrics: Prometheus instrumentation shared by all components
  - common/errors: sentinel and typed errors (validation, operation, execution)
  - common/validation: configuration checks

Example usage:

	import "github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"

	pool, err := workerpool.New(4)
	if err != nil {
		return err
	}
	defer func() { <-pool.Shutdown() }()

	f, _ := workerpool.Submit(pool, func() (int, error) { return 0, nil })
	g, _ := workerpool.ThenApply(f, func(x int) (int, error) { return x + 3, nil })
	v, err := g.Get() // 3, nil
*/
package taskflow
