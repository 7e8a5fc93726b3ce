package workerpool

import (
	"time"

	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// poolMetrics records pool activity into a metrics.Registry.
// A nil *poolMetrics records nothing.
type poolMetrics struct {
	registry *metrics.Registry
	name     string
}

func newPoolMetrics(cfg metrics.Config, name string) *poolMetrics {
	registry := metrics.FromConfig(cfg)
	if registry == nil {
		return nil
	}
	return &poolMetrics{registry: registry, name: name}
}

func (m *poolMetrics) submitted() {
	if m == nil {
		return
	}
	m.registry.TasksSubmitted.WithLabelValues(m.name).Inc()
}

func (m *poolMetrics) completed(d time.Duration) {
	if m == nil {
		return
	}
	m.registry.TasksCompleted.WithLabelValues(m.name).Inc()
	m.registry.TaskDuration.WithLabelValues(m.name).Observe(d.Seconds())
}

func (m *poolMetrics) failed(d time.Duration) {
	if m == nil {
		return
	}
	m.registry.TasksFailed.WithLabelValues(m.name).Inc()
	m.registry.TaskDuration.WithLabelValues(m.name).Observe(d.Seconds())
}

func (m *poolMetrics) abandoned() {
	if m == nil {
		return
	}
	m.registry.TasksAbandoned.WithLabelValues(m.name).Inc()
}

func (m *poolMetrics) queueWait(d time.Duration) {
	if m == nil {
		return
	}
	m.registry.QueueWait.WithLabelValues(m.name).Observe(d.Seconds())
}

func (m *poolMetrics) setSize(n int) {
	if m == nil {
		return
	}
	m.registry.PoolSize.WithLabelValues(m.name).Set(float64(n))
}

func (m *poolMetrics) setActive(n int) {
	if m == nil {
		return
	}
	m.registry.ActiveWorkers.WithLabelValues(m.name).Set(float64(n))
}

func (m *poolMetrics) setQueued(n int) {
	if m == nil {
		return
	}
	m.registry.QueuedTasks.WithLabelValues(m.name).Set(float64(n))
}
