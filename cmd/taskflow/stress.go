package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/ratelimit/distributed"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

// stressResult summarises one stress run.
type stressResult struct {
	elapsed   time.Duration
	verified  int
	failed    int
	abandoned int
	missing   int
}

// stress submits cfg.Tasks computations and checks that every future
// delivers its own result exactly once.
func (a *app) stress(ctx context.Context) error {
	metricsCfg, stopMetrics := a.serveMetrics()
	defer stopMetrics()

	limiter, closeLimiter, err := a.limiter()
	if err != nil {
		return err
	}
	defer closeLimiter()

	pool, err := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount:    a.cfg.Workers,
		ShutdownPolicy: a.cfg.ShutdownPolicy,
		Name:           "stress",
		Logger:         a.logger,
		Metrics:        metricsCfg,
		Limiter:        limiter,
	})
	if err != nil {
		return err
	}

	_, _ = bold.Fprintf(a.out, "Submitting %d tasks to %d workers\n", a.cfg.Tasks, a.cfg.Workers)

	start := time.Now()
	futures := make([]*workerpool.Future[int], a.cfg.Tasks)
	for i := range futures {
		futures[i], err = workerpool.Submit(pool, func() (int, error) {
			return i * 2, nil
		})
		if err != nil {
			<-pool.Shutdown()
			return err
		}
	}

	// An interrupt shuts the pool down; under AbandonQueue the remaining
	// futures then fail instead of running.
	collected := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			pool.Shutdown()
		case <-collected:
		}
	}()

	bar := a.progressBar(len(futures))
	res := stressResult{}
	seen := make([]bool, len(futures))
	for _, f := range futures {
		v, err := f.Get()
		switch {
		case errors.Is(err, workerpool.ErrTaskAbandoned):
			res.abandoned++
		case err != nil:
			res.failed++
		case v%2 != 0 || v/2 >= len(seen) || seen[v/2]:
			res.missing++
		default:
			seen[v/2] = true
			res.verified++
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	res.elapsed = time.Since(start)
	close(collected)

	<-pool.Shutdown()

	if err := a.renderStress(pool, res); err != nil {
		return err
	}
	if res.missing > 0 || res.failed > 0 {
		_, _ = red.Fprintln(a.out, "FAILED: results lost, duplicated or corrupted")
		return fmt.Errorf("%d of %d results did not verify", res.missing+res.failed, len(futures))
	}
	_, _ = green.Fprintln(a.out, "OK: every result delivered exactly once")
	return nil
}

func (a *app) renderStress(pool *workerpool.Pool, res stressResult) error {
	throughput := float64(res.verified) / res.elapsed.Seconds()

	table := tablewriter.NewWriter(a.out)
	table.Header("Workers", "Tasks", "Time", "Tasks/sec", "Verified", "Failed", "Abandoned", "Policy")
	if err := table.Append(
		fmt.Sprint(pool.Size()),
		fmt.Sprint(pool.TotalSubmitted()),
		res.elapsed.Round(time.Millisecond).String(),
		fmt.Sprintf("%.0f", throughput),
		fmt.Sprint(res.verified),
		fmt.Sprint(res.failed),
		fmt.Sprint(res.abandoned),
		a.cfg.ShutdownPolicy.String(),
	); err != nil {
		return err
	}
	return table.Render()
}

func (a *app) progressBar(total int) *progressbar.ProgressBar {
	if a.quiet {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Collecting results"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// serveMetrics starts a Prometheus endpoint when an address is configured.
func (a *app) serveMetrics() (metrics.Config, func()) {
	if a.cfg.MetricsAddr == "" {
		return metrics.Config{}, func() {}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", a.cfg.MetricsAddr)

	return metrics.Config{Enabled: true, Registry: reg}, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// limiter builds the execution throttle: Redis-backed when an address is
// configured, local otherwise, none when no rate is set.
func (a *app) limiter() (workerpool.Limiter, func(), error) {
	if a.cfg.Rate <= 0 {
		return nil, func() {}, nil
	}
	if a.cfg.RedisAddr == "" {
		return rate.NewLimiter(rate.Limit(a.cfg.Rate), 1), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
	l, err := distributed.NewLimiter(distributed.Config{
		Redis:           rdb,
		Key:             "taskflow:stress",
		Rate:            a.cfg.Rate,
		Logger:          a.logger,
		FallbackToLocal: true,
	})
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	return l.AsPoolLimiter(), func() {
		_ = l.Close()
		_ = rdb.Close()
	}, nil
}
