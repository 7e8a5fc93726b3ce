package workerpool

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/taskflow/internal/testutil"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

func TestPoolMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	pool, err := NewWithConfig(Config{
		WorkerCount: 2,
		Name:        "metered",
		Metrics:     metrics.Config{Enabled: true, Registry: reg},
	})
	testutil.AssertNoError(t, err)

	for i := 0; i < 6; i++ {
		f, err := Submit(pool, func() (int, error) {
			if i < 2 {
				return 0, errors.New("nope")
			}
			return i, nil
		})
		testutil.AssertNoError(t, err)
		_, _ = f.Get()
	}
	stop(t, pool)

	r := metrics.NewRegistry(reg)
	testutil.AssertEqual(t, promtest.ToFloat64(r.TasksSubmitted.WithLabelValues("metered")), 6.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.TasksCompleted.WithLabelValues("metered")), 4.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.TasksFailed.WithLabelValues("metered")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.PoolSize.WithLabelValues("metered")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.ActiveWorkers.WithLabelValues("metered")), 0.0)
	testutil.AssertEqual(t, promtest.CollectAndCount(r.TaskDuration), 1)
}

func TestPoolMetricsAbandoned(t *testing.T) {
	reg := prometheus.NewRegistry()
	pool, err := NewWithConfig(Config{
		WorkerCount:    1,
		Name:           "abandoning",
		ShutdownPolicy: AbandonQueue,
		Metrics:        metrics.Config{Enabled: true, Registry: reg},
	})
	testutil.AssertNoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	_, err = Go(pool, func() error {
		close(started)
		<-release
		return nil
	})
	testutil.AssertNoError(t, err)
	<-started

	for i := 0; i < 3; i++ {
		_, err := Go(pool, func() error { return nil })
		testutil.AssertNoError(t, err)
	}

	done := pool.Shutdown()
	close(release)
	<-done

	r := metrics.NewRegistry(reg)
	testutil.AssertEqual(t, promtest.ToFloat64(r.TasksAbandoned.WithLabelValues("abandoning")), 3.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.QueuedTasks.WithLabelValues("abandoning")), 0.0)
}

func TestPoolMetricsDisabled(t *testing.T) {
	m := newPoolMetrics(metrics.Config{}, "off")
	if m != nil {
		t.Fatal("expected nil recorder when metrics are disabled")
	}

	// nil recorder must be safe to use
	m.submitted()
	m.setQueued(3)
}
