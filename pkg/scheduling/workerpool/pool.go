package workerpool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	gferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// ErrTaskAbandoned is written to the futures of tasks that were still queued
// when a pool configured with AbandonQueue was shut down.
var ErrTaskAbandoned = fmt.Errorf("task abandoned at shutdown: %w", gferrors.ErrClosed)

// ShutdownPolicy decides what happens to queued tasks when the pool shuts down.
type ShutdownPolicy int

const (
	// DrainQueue runs every queued task before the workers stop.
	DrainQueue ShutdownPolicy = iota

	// AbandonQueue discards queued tasks and fails their futures with
	// ErrTaskAbandoned. Tasks already executing still finish.
	AbandonQueue
)

func (p ShutdownPolicy) String() string {
	switch p {
	case DrainQueue:
		return "drain"
	case AbandonQueue:
		return "abandon"
	default:
		return fmt.Sprintf("ShutdownPolicy(%d)", int(p))
	}
}

// ParseShutdownPolicy converts "drain" or "abandon" into a ShutdownPolicy.
func ParseShutdownPolicy(s string) (ShutdownPolicy, error) {
	switch s {
	case "drain", "":
		return DrainQueue, nil
	case "abandon":
		return AbandonQueue, nil
	default:
		return DrainQueue, gferrors.NewValidationError("workerpool", "ShutdownPolicy", s,
			"unknown policy").WithHint("use \"drain\" or \"abandon\"")
	}
}

// WorkerState is the lifecycle stage of a single worker.
type WorkerState int32

const (
	StateStarting WorkerState = iota
	StateRunning
	StateExecuting
	StateStopping
	StateStopped
)

func (s WorkerState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExecuting:
		return "executing"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("WorkerState(%d)", int32(s))
	}
}

// Limiter throttles task execution. A worker calls Wait before running each
// task. *rate.Limiter satisfies it, as does the distributed limiter adapter.
type Limiter interface {
	Wait(ctx context.Context) error
}

// PanicError is the cause recorded in a future when its computation panicked.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Result describes one finished task. It is passed to Config.OnTaskComplete.
type Result struct {
	// TaskID is the pool-local, monotonically increasing task identifier
	TaskID uint64

	// WorkerID identifies which worker executed the task
	WorkerID int

	// Err is the computation's error, nil on success
	Err error

	// Duration is how long the computation took
	Duration time.Duration
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// ShutdownPolicy decides the fate of queued tasks on Shutdown.
	// Defaults to DrainQueue.
	ShutdownPolicy ShutdownPolicy

	// Name labels log records and metrics. Defaults to "default".
	Name string

	// Logger receives worker lifecycle and failure records.
	// If nil, nothing is logged.
	Logger *slog.Logger

	// Metrics enables Prometheus instrumentation.
	Metrics metrics.Config

	// Limiter, when set, is waited on before each task executes.
	Limiter Limiter

	// PanicHandler is called when a computation panics. The panic is
	// recovered either way and reported through the task's future.
	PanicHandler func(taskID uint64, recovered interface{})

	// OnWorkerStart is called when a worker starts.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops.
	OnWorkerStop func(workerID int)

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int, taskID uint64)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, result Result)
}

// Pool runs submitted computations on a fixed set of workers fed from one
// FIFO queue.
type Pool struct {
	config  Config
	logger  *slog.Logger
	metrics *poolMetrics

	queue   *taskQueue
	workers []*worker
	group   errgroup.Group

	// ctx is cancelled when queued work is abandoned or the pool has stopped,
	// interrupting limiter waits.
	ctx    context.Context
	cancel context.CancelFunc

	shutdownOnce sync.Once
	stopped      chan struct{}

	nextID         atomic.Uint64
	activeWorkers  atomic.Int32
	totalSubmitted atomic.Int64
	totalCompleted atomic.Int64
	totalFailed    atomic.Int64
	totalAbandoned atomic.Int64
}

// worker represents a single worker in the pool.
type worker struct {
	id    int
	pool  *Pool
	state atomic.Int32
}

// New creates a worker pool with the given number of workers and default
// settings.
func New(workerCount int) (*Pool, error) {
	return NewWithConfig(Config{WorkerCount: workerCount})
}

// NewWithConfig creates a worker pool. Every worker has started and is
// waiting for tasks when it returns.
func NewWithConfig(config Config) (*Pool, error) {
	if err := validation.ValidatePositive("workerpool", "WorkerCount", config.WorkerCount); err != nil {
		return nil, err
	}
	if config.ShutdownPolicy != DrainQueue && config.ShutdownPolicy != AbandonQueue {
		return nil, gferrors.NewValidationError("workerpool", "ShutdownPolicy",
			config.ShutdownPolicy, "unknown policy")
	}
	if config.Name == "" {
		config.Name = "default"
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config:  config,
		logger:  logger.With("pool", config.Name),
		metrics: newPoolMetrics(config.Metrics, config.Name),
		queue:   newTaskQueue(),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}

	var ready sync.WaitGroup
	p.workers = make([]*worker, config.WorkerCount)
	for i := range p.workers {
		w := &worker{id: i, pool: p}
		p.workers[i] = w

		ready.Add(1)
		p.group.Go(func() error {
			w.run(ready.Done)
			return nil
		})
	}
	ready.Wait()

	p.metrics.setSize(config.WorkerCount)
	p.logger.Debug("worker pool started",
		"workers", config.WorkerCount,
		"shutdown_policy", config.ShutdownPolicy.String())

	return p, nil
}
