// Package config loads taskflow CLI settings from the environment.
package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	gferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

const (
	defaultWorkers   = 4
	defaultTasks     = 10000
	defaultLogFormat = "text"

	envWorkers        = "TASKFLOW_WORKERS"
	envTasks          = "TASKFLOW_TASKS"
	envShutdownPolicy = "TASKFLOW_SHUTDOWN_POLICY"
	envLogLevel       = "TASKFLOW_LOG_LEVEL"
	envLogFormat      = "TASKFLOW_LOG_FORMAT"
	envMetricsAddr    = "TASKFLOW_METRICS_ADDR"
	envRedisAddr      = "TASKFLOW_REDIS_ADDR"
	envRate           = "TASKFLOW_RATE"
)

// Config holds CLI configuration loaded from environment variables.
type Config struct {
	Workers        int
	Tasks          int
	ShutdownPolicy workerpool.ShutdownPolicy
	LogLevel       slog.Level
	LogFormat      string
	MetricsAddr    string
	RedisAddr      string
	Rate           float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Workers:        defaultWorkers,
		Tasks:          defaultTasks,
		ShutdownPolicy: workerpool.DrainQueue,
		LogLevel:       slog.LevelInfo,
		LogFormat:      defaultLogFormat,
	}

	var err error
	if v := os.Getenv(envWorkers); v != "" {
		if cfg.Workers, err = parseInt(envWorkers, v); err != nil {
			return cfg, err
		}
	}
	if v := os.Getenv(envTasks); v != "" {
		if cfg.Tasks, err = parseInt(envTasks, v); err != nil {
			return cfg, err
		}
	}
	if v := os.Getenv(envShutdownPolicy); v != "" {
		if cfg.ShutdownPolicy, err = workerpool.ParseShutdownPolicy(strings.ToLower(v)); err != nil {
			return cfg, err
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envLogFormat); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv(envMetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv(envRedisAddr); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv(envRate); v != "" {
		if cfg.Rate, err = strconv.ParseFloat(v, 64); err != nil {
			return cfg, gferrors.NewValidationError("config", envRate, v, "not a number")
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks values that flags may have overridden after Load.
func (c Config) Validate() error {
	if err := validation.ValidatePositive("config", "Workers", c.Workers); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "Tasks", c.Tasks); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("config", "Rate", c.Rate); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return gferrors.NewValidationError("config", "LogFormat", c.LogFormat, "unknown format").
			WithHint("use \"text\" or \"json\"")
	}
	return nil
}

func parseInt(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, gferrors.NewValidationError("config", name, s, "not an integer")
	}
	return n, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured logger writing to w at the given level,
// as JSON when format is "json" and as text otherwise.
func NewLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
