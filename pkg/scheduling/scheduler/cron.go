package scheduler

import (
	"sync"

	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

// Option configures a scheduled job.
type Option func(*options)

type options struct {
	maxRuns            int
	skipIfStillRunning bool
	onSubmit           interface{}
}

// WithMaxRuns removes the job after it has submitted n computations.
// Zero means unlimited.
func WithMaxRuns(n int) Option {
	return func(o *options) { o.maxRuns = n }
}

// WithSkipIfStillRunning skips a firing while the previous computation's
// future is not ready yet.
func WithSkipIfStillRunning() Option {
	return func(o *options) { o.skipIfStillRunning = true }
}

// WithOnSubmit receives the future of every submitted computation. Its type
// parameter must match the computation passed to Schedule.
func WithOnSubmit[T any](fn func(*workerpool.Future[T])) Option {
	return func(o *options) { o.onSubmit = fn }
}

// job is the cron.Job run on every firing of one schedule.
type job[T any] struct {
	*jobState
	s        *Scheduler
	fn       func() (T, error)
	opts     options
	onSubmit func(*workerpool.Future[T])

	mu   sync.Mutex
	last *workerpool.Future[T]
}

func (j *job[T]) Run() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.opts.maxRuns > 0 && j.runs.Load() >= int64(j.opts.maxRuns) {
		return
	}
	if j.opts.skipIfStillRunning && j.last != nil && !j.last.IsReady() {
		j.s.skip(j.id, "previous run still in progress")
		return
	}

	f, err := workerpool.Submit(j.s.pool, j.fn)
	if err != nil {
		j.s.skip(j.id, err.Error())
		return
	}

	runs := j.runs.Add(1)
	j.last = f
	j.s.metrics.run(j.id)
	j.s.logger.Debug("job submitted", "job_id", j.id, "run", runs)

	if j.onSubmit != nil {
		j.onSubmit(f)
	}

	if j.opts.maxRuns > 0 && runs >= int64(j.opts.maxRuns) {
		j.s.Cancel(j.id)
		j.s.logger.Debug("job reached max runs", "job_id", j.id, "max_runs", j.opts.maxRuns)
	}
}
