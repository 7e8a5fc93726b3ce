package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry_SharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewRegistry(reg)
	second := NewRegistry(reg)

	first.TasksFailed.WithLabelValues("a").Inc()
	second.TasksFailed.WithLabelValues("a").Inc()

	if got := testutil.ToFloat64(first.TasksFailed.WithLabelValues("a")); got != 2 {
		t.Errorf("shared counter = %v, want 2", got)
	}
}

func TestFromConfig_Namespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	registry := FromConfig(Config{Enabled: true, Registry: reg, Namespace: "jobs"})

	registry.PoolSize.WithLabelValues("p").Set(4)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() == "jobs_workerpool_size" {
			found = true
		}
	}
	if !found {
		t.Error("expected jobs_workerpool_size to be registered")
	}
}

func TestFromConfig_ConstLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	registry := FromConfig(Config{
		Enabled:  true,
		Registry: reg,
		Labels:   prometheus.Labels{"service": "render"},
	})

	registry.SchedulerRuns.WithLabelValues("cron", "nightly").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "taskflow_scheduler_runs_total" {
			continue
		}
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			if lp.GetName() == "service" && lp.GetValue() == "render" {
				return
			}
		}
	}
	t.Error("expected constant label service=render on scheduler runs")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Enabled {
		t.Error("default config should be enabled")
	}
	if cfg.Namespace != DefaultNamespace {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, DefaultNamespace)
	}
}
