package distributed

import (
	"time"

	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

var _ workerpool.Limiter = (*Limiter)(nil)

// AsPoolLimiter returns l as a worker pool execution throttle. Every task
// the pool runs then consumes one event of the shared budget.
func (l *Limiter) AsPoolLimiter() workerpool.Limiter {
	return l
}

// limiterMetrics records decisions into a metrics.Registry.
// A nil *limiterMetrics records nothing.
type limiterMetrics struct {
	registry *metrics.Registry
	name     string
}

func newLimiterMetrics(cfg metrics.Config, name string) *limiterMetrics {
	registry := metrics.FromConfig(cfg)
	if registry == nil {
		return nil
	}
	return &limiterMetrics{registry: registry, name: name}
}

func (m *limiterMetrics) record(allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.registry.RateLimitAllowed.WithLabelValues(m.name).Inc()
	} else {
		m.registry.RateLimitDenied.WithLabelValues(m.name).Inc()
	}
}

func (m *limiterMetrics) waited(d time.Duration) {
	if m == nil {
		return
	}
	m.registry.RateLimitWaitTime.WithLabelValues(m.name).Observe(d.Seconds())
}
