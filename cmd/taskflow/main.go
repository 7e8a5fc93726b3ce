// Command taskflow exercises a worker pool end to end.
//
// Usage:
//
//	taskflow stress [-workers N] [-tasks N] [-shutdown drain|abandon] [-rate R]
//	                [-redis-addr host:port] [-metrics-addr :9090] [-quiet]
//	taskflow chain
//
// Defaults come from TASKFLOW_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/vnykmshr/taskflow/internal/config"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

var errUsage = errors.New("usage: taskflow <stress|chain> [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		_, _ = red.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries the resolved settings of one invocation.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	quiet  bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of workers")
	fs.IntVar(&cfg.Tasks, "tasks", cfg.Tasks, "number of tasks to submit")
	policy := fs.String("shutdown", cfg.ShutdownPolicy.String(), "shutdown policy: drain or abandon")
	fs.Float64Var(&cfg.Rate, "rate", cfg.Rate, "task executions per second, 0 for unlimited")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "share the rate limit through this Redis")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	quiet := fs.Bool("quiet", false, "disable the progress bar and colors")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cfg.ShutdownPolicy, err = workerpool.ParseShutdownPolicy(*policy); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *quiet {
		color.NoColor = true
	}

	a := &app{
		cfg:    cfg,
		logger: config.NewLogger(stderr, cfg.LogFormat, cfg.LogLevel),
		out:    stdout,
		quiet:  *quiet,
	}

	switch cmd {
	case "stress":
		return a.stress(ctx)
	case "chain":
		return a.chain()
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}
