package scheduler

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	gferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

const maxIDLength = 255

// Config holds scheduler configuration.
type Config struct {
	// Pool receives every scheduled computation. Required.
	Pool *workerpool.Pool

	// Location is the time zone cron expressions are evaluated in.
	// Defaults to time.Local.
	Location *time.Location

	// Logger receives firing and skip records. If nil, nothing is logged.
	Logger *slog.Logger

	// Metrics enables Prometheus instrumentation.
	Metrics metrics.Config

	// Name labels log records and metrics. Defaults to "default".
	Name string

	// WithSeconds expects a leading seconds field in cron expressions.
	WithSeconds bool
}

// Entry describes one scheduled job.
type Entry struct {
	ID         string
	Expression string
	Next       time.Time
	Prev       time.Time
	Runs       int64
}

// Scheduler submits computations to a worker pool on cron schedules.
type Scheduler struct {
	pool     *workerpool.Pool
	cron     *cron.Cron
	parser   cron.Parser
	location *time.Location
	logger   *slog.Logger
	metrics  *schedulerMetrics

	mu   sync.RWMutex
	jobs map[string]*jobState
}

// jobState is the type-independent part of a scheduled job.
type jobState struct {
	id      string
	expr    string
	entryID cron.EntryID
	runs    atomic.Int64
}

// New creates a scheduler bound to cfg.Pool. The scheduler does not fire
// until Start is called.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Pool == nil {
		return nil, gferrors.NewValidationError("scheduler", "Pool", nil, "must not be nil").
			WithHint("create one with workerpool.New")
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("scheduler", cfg.Name)

	fields := cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor
	if cfg.WithSeconds {
		fields |= cron.Second
	}
	parser := cron.NewParser(fields)

	clog := cronLogger{logger: logger}
	return &Scheduler{
		pool:     cfg.Pool,
		parser:   parser,
		location: location,
		logger:   logger,
		metrics:  newSchedulerMetrics(cfg.Metrics, cfg.Name),
		jobs:     make(map[string]*jobState),
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(location),
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog)),
		),
	}, nil
}

// Schedule registers fn under id. Every time expr fires, fn is submitted to
// the scheduler's pool; the resulting future is handed to the WithOnSubmit
// callback, if any.
func Schedule[T any](s *Scheduler, id, expr string, fn func() (T, error), opts ...Option) error {
	if err := validation.ValidateNotEmpty("scheduler", "ID", id); err != nil {
		return err
	}
	if err := validation.ValidateMaxLength("scheduler", "ID", id, maxIDLength); err != nil {
		return err
	}
	if fn == nil {
		return gferrors.NewValidationError("scheduler", "fn", nil, "must not be nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxRuns < 0 {
		return gferrors.NewValidationError("scheduler", "MaxRuns", o.maxRuns, "must be non-negative")
	}

	var onSubmit func(*workerpool.Future[T])
	if o.onSubmit != nil {
		cb, ok := o.onSubmit.(func(*workerpool.Future[T]))
		if !ok {
			return gferrors.NewValidationError("scheduler", "OnSubmit", fmt.Sprintf("%T", o.onSubmit),
				"callback type does not match the scheduled computation")
		}
		onSubmit = cb
	}

	schedule, err := s.parse(expr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return gferrors.NewValidationError("scheduler", "ID", id, "already scheduled").
			WithHint("cancel the existing job first or use a different ID")
	}

	state := &jobState{id: id, expr: expr}
	state.entryID = s.cron.Schedule(schedule, &job[T]{
		jobState: state,
		s:        s,
		fn:       fn,
		opts:     o,
		onSubmit: onSubmit,
	})
	s.jobs[id] = state

	s.logger.Debug("job scheduled", "job_id", id, "expression", expr)
	return nil
}

// Cancel removes the job with the given id. It reports whether the job existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, exists := s.jobs[id]
	if !exists {
		return false
	}
	s.cron.Remove(state.entryID)
	delete(s.jobs, id)
	return true
}

// List returns all scheduled jobs ordered by their next firing time.
func (s *Scheduler) List() []Entry {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.jobs))
	for _, state := range s.jobs {
		e := s.cron.Entry(state.entryID)
		entries = append(entries, Entry{
			ID:         state.id,
			Expression: state.expr,
			Next:       e.Next,
			Prev:       e.Prev,
			Runs:       state.runs.Load(),
		})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Next.Equal(entries[j].Next) {
			return entries[i].Next.Before(entries[j].Next)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

// Start begins firing jobs. Calling it on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts firing. The returned channel is closed once any firing in
// progress has finished submitting. The pool is left running.
func (s *Scheduler) Stop() <-chan struct{} {
	ctx := s.cron.Stop()
	s.logger.Info("scheduler stopped")
	return ctx.Done()
}

// ValidateExpression reports whether expr is accepted by the scheduler's parser.
func (s *Scheduler) ValidateExpression(expr string) error {
	_, err := s.parse(expr)
	return err
}

// NextRuns returns the next n firing times of expr, starting from now.
func (s *Scheduler) NextRuns(expr string, n int) ([]time.Time, error) {
	if err := validation.ValidatePositive("scheduler", "n", n); err != nil {
		return nil, err
	}
	schedule, err := s.parse(expr)
	if err != nil {
		return nil, err
	}

	runs := make([]time.Time, 0, n)
	t := time.Now().In(s.location)
	for i := 0; i < n; i++ {
		t = schedule.Next(t)
		if t.IsZero() {
			break
		}
		runs = append(runs, t)
	}
	return runs, nil
}

func (s *Scheduler) parse(expr string) (cron.Schedule, error) {
	if err := validation.ValidateNotEmpty("scheduler", "Expression", expr); err != nil {
		return nil, err
	}
	schedule, err := s.parser.Parse(expr)
	if err != nil {
		return nil, gferrors.NewValidationError("scheduler", "Expression", expr, err.Error()).
			WithHint("use five fields, a descriptor such as @hourly, or @every <duration>")
	}
	return schedule, nil
}

func (s *Scheduler) skip(id, reason string) {
	s.metrics.skip(id)
	s.logger.Warn("job firing skipped", "job_id", id, "reason", reason)
}

// cronLogger forwards cron's internal records to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
