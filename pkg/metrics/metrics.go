// Package metrics provides Prometheus instrumentation for taskflow components.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metric instances for taskflow components.
type Registry struct {
	// Worker pool metrics
	TasksSubmitted *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec
	TasksAbandoned *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	QueueWait      *prometheus.HistogramVec
	PoolSize       *prometheus.GaugeVec
	ActiveWorkers  *prometheus.GaugeVec
	QueuedTasks    *prometheus.GaugeVec

	// Scheduler metrics
	SchedulerRuns  *prometheus.CounterVec
	SchedulerSkips *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitAllowed  *prometheus.CounterVec
	RateLimitDenied   *prometheus.CounterVec
	RateLimitWaitTime *prometheus.HistogramVec
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry bound to prometheus.DefaultRegisterer.
// It is created on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
// Calling it twice with the same registerer returns collectors that share the
// already registered series.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, DefaultNamespace, nil)
}

func newRegistry(reg prometheus.Registerer, namespace string, labels prometheus.Labels) *Registry {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	counter := func(subsystem, name, help string, labelNames ...string) *prometheus.CounterVec {
		return register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, labelNames))
	}
	gauge := func(subsystem, name, help string, labelNames ...string) *prometheus.GaugeVec {
		return register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, labelNames))
	}
	histogram := func(subsystem, name, help string, labelNames ...string) *prometheus.HistogramVec {
		return register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, labelNames))
	}

	return &Registry{
		TasksSubmitted: counter("workerpool", "tasks_submitted_total",
			"Total number of tasks accepted by the pool", "pool_name"),
		TasksCompleted: counter("workerpool", "tasks_completed_total",
			"Total number of tasks whose computation succeeded", "pool_name"),
		TasksFailed: counter("workerpool", "tasks_failed_total",
			"Total number of tasks whose computation failed or panicked", "pool_name"),
		TasksAbandoned: counter("workerpool", "tasks_abandoned_total",
			"Total number of queued tasks discarded at shutdown", "pool_name"),
		TaskDuration: histogram("workerpool", "task_duration_seconds",
			"Time spent executing tasks", "pool_name"),
		QueueWait: histogram("workerpool", "queue_wait_seconds",
			"Time tasks spent queued before a worker picked them up", "pool_name"),
		PoolSize: gauge("workerpool", "size",
			"Current worker pool size", "pool_name"),
		ActiveWorkers: gauge("workerpool", "active_workers",
			"Number of workers executing a task", "pool_name"),
		QueuedTasks: gauge("workerpool", "queued_tasks",
			"Number of queued tasks", "pool_name"),

		SchedulerRuns: counter("scheduler", "runs_total",
			"Total number of scheduled submissions", "scheduler_name", "job_id"),
		SchedulerSkips: counter("scheduler", "skips_total",
			"Total number of scheduled firings that did not submit", "scheduler_name", "job_id"),

		RateLimitAllowed: counter("ratelimit", "allowed_total",
			"Total number of allowed requests", "limiter_name"),
		RateLimitDenied: counter("ratelimit", "denied_total",
			"Total number of denied requests", "limiter_name"),
		RateLimitWaitTime: histogram("ratelimit", "wait_duration_seconds",
			"Time spent waiting for rate limit approval", "limiter_name"),
	}
}

// register adds c to reg, reusing the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
