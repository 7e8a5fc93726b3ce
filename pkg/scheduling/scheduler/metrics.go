package scheduler

import "github.com/vnykmshr/taskflow/pkg/metrics"

// schedulerMetrics records firings into a metrics.Registry.
// A nil *schedulerMetrics records nothing.
type schedulerMetrics struct {
	registry *metrics.Registry
	name     string
}

func newSchedulerMetrics(cfg metrics.Config, name string) *schedulerMetrics {
	registry := metrics.FromConfig(cfg)
	if registry == nil {
		return nil
	}
	return &schedulerMetrics{registry: registry, name: name}
}

func (m *schedulerMetrics) run(jobID string) {
	if m == nil {
		return
	}
	m.registry.SchedulerRuns.WithLabelValues(m.name, jobID).Inc()
}

func (m *schedulerMetrics) skip(jobID string) {
	if m == nil {
		return
	}
	m.registry.SchedulerSkips.WithLabelValues(m.name, jobID).Inc()
}
