package scheduler

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/taskflow/internal/testutil"
	gferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

func newTestPool(t *testing.T) *workerpool.Pool {
	t.Helper()
	pool, err := workerpool.New(2)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { <-pool.Shutdown() })
	return pool
}

func newTestScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	if cfg.Pool == nil {
		cfg.Pool = newTestPool(t)
	}
	s, err := New(cfg)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { <-s.Stop() })
	return s
}

func noop() (int, error) { return 0, nil }

func TestNewRequiresPool(t *testing.T) {
	_, err := New(Config{})
	testutil.AssertErrorIs(t, err, gferrors.ErrInvalidConfiguration)
}

func TestScheduleValidation(t *testing.T) {
	s := newTestScheduler(t, Config{})
	testutil.AssertNoError(t, Schedule(s, "existing", "@hourly", noop))

	tests := []struct {
		name string
		err  error
	}{
		{"empty id", Schedule(s, "", "@hourly", noop)},
		{"long id", Schedule(s, strings.Repeat("x", 256), "@hourly", noop)},
		{"nil fn", Schedule[int](s, "nil-fn", "@hourly", nil)},
		{"empty expression", Schedule(s, "empty-expr", "", noop)},
		{"bad expression", Schedule(s, "bad-expr", "every tuesday", noop)},
		{"duplicate id", Schedule(s, "existing", "@daily", noop)},
		{"negative max runs", Schedule(s, "neg", "@hourly", noop, WithMaxRuns(-1))},
		{"mismatched callback", Schedule(s, "cb", "@hourly", noop,
			WithOnSubmit(func(*workerpool.Future[string]) {}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertErrorIs(t, tt.err, gferrors.ErrInvalidConfiguration)
		})
	}

	testutil.AssertEqual(t, len(s.List()), 1)
}

func TestValidateExpression(t *testing.T) {
	minutes := newTestScheduler(t, Config{})
	seconds := newTestScheduler(t, Config{WithSeconds: true})

	tests := []struct {
		s     *Scheduler
		expr  string
		valid bool
	}{
		{minutes, "*/5 * * * *", true},
		{minutes, "30 14 * * 1-5", true},
		{minutes, "@daily", true},
		{minutes, "@every 90s", true},
		{minutes, "0 0 * * * *", false},
		{minutes, "61 * * * *", false},
		{seconds, "0 */2 * * * *", true},
		{seconds, "*/5 * * * *", false},
	}

	for _, tt := range tests {
		err := tt.s.ValidateExpression(tt.expr)
		if tt.valid {
			testutil.AssertNoError(t, err)
		} else {
			testutil.AssertErrorIs(t, err, gferrors.ErrInvalidConfiguration)
		}
	}
}

func TestNextRuns(t *testing.T) {
	s := newTestScheduler(t, Config{Location: time.UTC})

	runs, err := s.NextRuns("0 * * * *", 3)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(runs), 3)

	for i, r := range runs {
		testutil.AssertEqual(t, r.Minute(), 0)
		if i > 0 {
			testutil.AssertEqual(t, r.Sub(runs[i-1]), time.Hour)
		}
	}

	_, err = s.NextRuns("0 * * * *", 0)
	testutil.AssertErrorIs(t, err, gferrors.ErrInvalidConfiguration)
}

func TestListAndCancel(t *testing.T) {
	s := newTestScheduler(t, Config{})
	s.Start()

	testutil.AssertNoError(t, Schedule(s, "yearly", "@yearly", noop))
	testutil.AssertNoError(t, Schedule(s, "hourly", "@hourly", noop))

	entries := s.List()
	testutil.AssertEqual(t, len(entries), 2)
	testutil.AssertEqual(t, entries[0].ID, "hourly")
	testutil.AssertEqual(t, entries[1].ID, "yearly")
	testutil.AssertEqual(t, entries[0].Expression, "@hourly")
	if entries[0].Next.IsZero() {
		t.Error("running scheduler should report the next firing time")
	}

	testutil.AssertEqual(t, s.Cancel("hourly"), true)
	testutil.AssertEqual(t, s.Cancel("hourly"), false)
	testutil.AssertEqual(t, len(s.List()), 1)
}

func TestJobRunSubmits(t *testing.T) {
	s := newTestScheduler(t, Config{})

	var mu sync.Mutex
	var futures []*workerpool.Future[int]
	j := &job[int]{
		jobState: &jobState{id: "direct"},
		s:        s,
		fn:       func() (int, error) { return 7, nil },
		opts:     options{maxRuns: 2},
		onSubmit: func(f *workerpool.Future[int]) {
			mu.Lock()
			futures = append(futures, f)
			mu.Unlock()
		},
	}

	for i := 0; i < 3; i++ {
		j.Run()
	}

	testutil.AssertEqual(t, j.runs.Load(), int64(2))
	testutil.AssertEqual(t, len(futures), 2)
	for _, f := range futures {
		v, err := f.Get()
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, v, 7)
	}
}

func TestJobSkipIfStillRunning(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestScheduler(t, Config{
		Name:    "skipper",
		Metrics: metrics.Config{Enabled: true, Registry: reg},
	})

	release := make(chan struct{})
	j := &job[int]{
		jobState: &jobState{id: "slow"},
		s:        s,
		fn: func() (int, error) {
			<-release
			return 1, nil
		},
		opts: options{skipIfStillRunning: true},
	}

	j.Run()
	j.Run()
	testutil.AssertEqual(t, j.runs.Load(), int64(1))

	close(release)
	_, err := j.last.Get()
	testutil.AssertNoError(t, err)

	j.Run()
	testutil.AssertEqual(t, j.runs.Load(), int64(2))
	_, _ = j.last.Get()

	r := metrics.NewRegistry(reg)
	testutil.AssertEqual(t, promtest.ToFloat64(r.SchedulerRuns.WithLabelValues("skipper", "slow")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.SchedulerSkips.WithLabelValues("skipper", "slow")), 1.0)
}

func TestJobRunAgainstClosedPool(t *testing.T) {
	pool, err := workerpool.New(1)
	testutil.AssertNoError(t, err)
	<-pool.Shutdown()

	s := newTestScheduler(t, Config{Pool: pool})
	j := &job[int]{jobState: &jobState{id: "late"}, s: s, fn: noop}

	j.Run()
	testutil.AssertEqual(t, j.runs.Load(), int64(0))
}

func TestSchedulerFires(t *testing.T) {
	s := newTestScheduler(t, Config{WithSeconds: true})

	results := make(chan error, 4)
	err := Schedule(s, "every-second", "* * * * * *",
		func() (string, error) { return "", errors.New("tick") },
		WithMaxRuns(2),
		WithOnSubmit(func(f *workerpool.Future[string]) {
			_, err := f.Get()
			results <- err
		}),
	)
	testutil.AssertNoError(t, err)
	s.Start()

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			testutil.AssertEqual(t, gferrors.IsExecutionError(err), true)
		case <-time.After(4 * time.Second):
			t.Fatalf("firing %d did not happen", i+1)
		}
	}

	testutil.Eventually(t, func() bool { return len(s.List()) == 0 }, time.Second, 10*time.Millisecond)
}
