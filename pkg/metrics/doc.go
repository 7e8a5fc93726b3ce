// Package metrics provides Prometheus instrumentation for taskflow components.
//
// Components accept a Config and resolve it with FromConfig. A disabled
// Config yields a nil *Registry, which every component treats as "record
// nothing", so instrumentation costs nothing unless asked for.
//
// # Quick Start
//
//	pool, _ := workerpool.NewWithConfig(workerpool.Config{
//		WorkerCount: 4,
//		Name:        "images",
//		Metrics:     metrics.Config{Enabled: true},
//	})
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Custom Registry
//
// Use a dedicated Prometheus registry for isolation, for example in tests:
//
//	reg := prometheus.NewRegistry()
//	cfg := metrics.Config{Enabled: true, Registry: reg}
//
// Several components may share one registerer; series are told apart by
// their name label (pool_name, scheduler_name, limiter_name).
//
// # Available Metrics
//
// Worker pool:
//
//   - taskflow_workerpool_tasks_submitted_total
//   - taskflow_workerpool_tasks_completed_total
//   - taskflow_workerpool_tasks_failed_total
//   - taskflow_workerpool_tasks_abandoned_total
//   - taskflow_workerpool_task_duration_seconds
//   - taskflow_workerpool_queue_wait_seconds
//   - taskflow_workerpool_size
//   - taskflow_workerpool_active_workers
//   - taskflow_workerpool_queued_tasks
//
// Scheduler:
//
//   - taskflow_scheduler_runs_total
//   - taskflow_scheduler_skips_total
//
// Rate limiting:
//
//   - taskflow_ratelimit_allowed_total
//   - taskflow_ratelimit_denied_total
//   - taskflow_ratelimit_wait_duration_seconds
package metrics
