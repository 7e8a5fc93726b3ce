package distributed

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	gferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// Reservation holds information about a distributed rate limiting reservation.
type Reservation struct {
	OK         bool
	Delay      time.Duration
	Tokens     int
	AllowedAt  time.Time
	InstanceID string
}

// Stats holds distributed rate limiter statistics.
type Stats struct {
	Rate            float64
	Remaining       float64
	WindowStart     time.Time
	TotalRequests   int64
	AllowedRequests int64
	DeniedRequests  int64
	ActiveInstances []string
}

// Config holds configuration for the distributed rate limiter.
type Config struct {
	// Redis client for coordination
	Redis redis.UniversalClient

	// Key is the Redis key prefix for this limiter
	Key string

	// Rate is the number of events allowed per one-second window,
	// shared by every instance using the same Key
	Rate float64

	// InstanceID uniquely identifies this application instance
	InstanceID string

	// Name labels log records and metrics. Defaults to Key.
	Name string

	// Logger receives fallback and Redis failure records. If nil, nothing is logged.
	Logger *slog.Logger

	// Metrics enables Prometheus instrumentation.
	Metrics metrics.Config

	// FallbackToLocal enables local rate limiting if Redis is unavailable
	FallbackToLocal bool

	// LocalLimiter is used when Redis is unavailable (if FallbackToLocal is true).
	// Defaults to a limiter allowing Rate events per second.
	LocalLimiter *rate.Limiter

	// RedisTimeout is the timeout for Redis operations
	RedisTimeout time.Duration

	// RefreshInterval controls how often Wait retries a full window (defaults to 100ms)
	RefreshInterval time.Duration

	// KeyTTL is how long Redis keys should live (defaults to 1 hour)
	KeyTTL time.Duration
}

// DefaultConfig returns a default distributed rate limiter configuration.
func DefaultConfig() Config {
	return Config{
		InstanceID:      generateInstanceID(),
		FallbackToLocal: true,
		RedisTimeout:    500 * time.Millisecond,
		RefreshInterval: 100 * time.Millisecond,
		KeyTTL:          time.Hour,
	}
}

// Limiter is a fixed-window rate limiter whose counters live in Redis, so
// that every process using the same key shares one budget per second.
type Limiter struct {
	config  Config
	keys    keys
	script  *redis.Script
	logger  *slog.Logger
	metrics *limiterMetrics
}

// NewLimiter creates a distributed limiter. When Redis cannot be reached and
// FallbackToLocal is set, the limiter is still returned and serves requests
// from the local limiter until Redis recovers.
func NewLimiter(config Config) (*Limiter, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	config = applyConfigDefaults(config)

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	l := &Limiter{
		config:  config,
		keys:    redisKeys(config.Key),
		script:  redis.NewScript(luaFixedWindowCheckAndIncrement),
		logger:  logger.With("limiter", config.Name, "instance_id", config.InstanceID),
		metrics: newLimiterMetrics(config.Metrics, config.Name),
	}

	if err := l.initialize(context.Background()); err != nil {
		if !config.FallbackToLocal {
			return nil, err
		}
		l.logger.Warn("redis unavailable, using local limiter", "error", err)
	}

	return l, nil
}

// validateConfig validates the limiter configuration.
func validateConfig(config Config) error {
	if config.Redis == nil {
		return gferrors.NewValidationError("distributed", "Redis", nil, "client is required")
	}
	if err := validation.ValidateNotEmpty("distributed", "Key", config.Key); err != nil {
		return err
	}
	return validation.ValidatePositive("distributed", "Rate", config.Rate)
}

// applyConfigDefaults sets default values for unspecified config fields.
func applyConfigDefaults(config Config) Config {
	if config.InstanceID == "" {
		config.InstanceID = generateInstanceID()
	}
	if config.Name == "" {
		config.Name = config.Key
	}
	if config.RedisTimeout == 0 {
		config.RedisTimeout = 500 * time.Millisecond
	}
	if config.RefreshInterval == 0 {
		config.RefreshInterval = 100 * time.Millisecond
	}
	if config.KeyTTL == 0 {
		config.KeyTTL = time.Hour
	}
	if config.FallbackToLocal && config.LocalLimiter == nil {
		burst := int(config.Rate)
		if burst < 1 {
			burst = 1
		}
		config.LocalLimiter = rate.NewLimiter(rate.Limit(config.Rate), burst)
	}
	return config
}

// initialize registers the configuration and this instance in Redis.
func (l *Limiter) initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.config.RedisTimeout)
	defer cancel()

	pipe := l.config.Redis.Pipeline()

	pipe.HSet(ctx, l.keys.config, map[string]interface{}{
		"rate":            l.config.Rate,
		"window_duration": time.Second.Nanoseconds(),
	})
	pipe.Expire(ctx, l.keys.config, l.config.KeyTTL)

	pipe.HSetNX(ctx, l.keys.stats, "total_requests", 0)
	pipe.Expire(ctx, l.keys.stats, l.config.KeyTTL)

	pipe.SAdd(ctx, l.keys.instances, l.config.InstanceID)
	pipe.Expire(ctx, l.keys.instances, l.config.KeyTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return gferrors.NewOperationError("distributed", "initialize", err).WithContext(l.config.Key)
	}
	return nil
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow(ctx context.Context) (bool, error) {
	return l.AllowN(ctx, 1)
}

// AllowN reports whether n events may happen now across all instances.
// A Redis failure is answered by the local limiter when fallback is
// enabled, and returned otherwise.
func (l *Limiter) AllowN(ctx context.Context, n int) (bool, error) {
	if n <= 0 {
		return true, nil
	}

	allowed, err := l.check(ctx, n)
	if err != nil {
		if !l.config.FallbackToLocal {
			return false, err
		}
		l.logger.Debug("redis check failed, using local limiter", "error", err)
		allowed = l.config.LocalLimiter.AllowN(time.Now(), n)
	}

	l.metrics.record(allowed)
	return allowed, nil
}

func (l *Limiter) check(ctx context.Context, n int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, l.config.RedisTimeout)
	defer cancel()

	result, err := l.script.Run(ctx, l.config.Redis,
		[]string{windowKey(l.keys.window, time.Now()), l.keys.stats},
		n,
		max(1, int64(l.config.Rate)),
		1,
	).Int64()
	if err != nil {
		return false, gferrors.NewOperationError("distributed", "check", err).WithContext(l.config.Key)
	}
	return result == 1, nil
}

// Wait blocks until an event can happen.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.WaitN(ctx, 1)
}

// WaitN blocks until n events can happen or ctx is done.
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}

	start := time.Now()
	defer func() { l.metrics.waited(time.Since(start)) }()

	ticker := time.NewTicker(l.config.RefreshInterval)
	defer ticker.Stop()

	for {
		allowed, err := l.check(ctx, n)
		if err != nil {
			if !l.config.FallbackToLocal {
				return err
			}
			l.logger.Debug("redis check failed, waiting on local limiter", "error", err)
			if err := l.config.LocalLimiter.WaitN(ctx, n); err != nil {
				return err
			}
			l.metrics.record(true)
			return nil
		}
		if allowed {
			l.metrics.record(true)
			return nil
		}
		l.metrics.record(false)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reserve returns information about when to act for n events.
func (l *Limiter) Reserve(ctx context.Context, n int) (*Reservation, error) {
	if n <= 0 {
		return &Reservation{OK: true, InstanceID: l.config.InstanceID}, nil
	}

	allowed, err := l.AllowN(ctx, n)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if allowed {
		return &Reservation{
			OK:         true,
			Tokens:     n,
			AllowedAt:  now,
			InstanceID: l.config.InstanceID,
		}, nil
	}

	next := now.Truncate(time.Second).Add(time.Second)
	return &Reservation{
		OK:         false,
		Delay:      next.Sub(now),
		Tokens:     n,
		AllowedAt:  next,
		InstanceID: l.config.InstanceID,
	}, nil
}

// Stats returns current limiter statistics.
func (l *Limiter) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, l.config.RedisTimeout)
	defer cancel()

	now := time.Now()
	pipe := l.config.Redis.Pipeline()
	instancesCmd := pipe.SMembers(ctx, l.keys.instances)
	statsCmd := pipe.HGetAll(ctx, l.keys.stats)
	windowCmd := pipe.Get(ctx, windowKey(l.keys.window, now))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, gferrors.NewOperationError("distributed", "stats", err).WithContext(l.config.Key)
	}

	stats := statsCmd.Val()
	used, _ := windowCmd.Float64()

	return &Stats{
		Rate:            l.config.Rate,
		Remaining:       max(0, l.config.Rate-used),
		WindowStart:     now.Truncate(time.Second),
		TotalRequests:   parseCount(stats["total_requests"]),
		AllowedRequests: parseCount(stats["allowed_requests"]),
		DeniedRequests:  parseCount(stats["denied_requests"]),
		ActiveInstances: instancesCmd.Val(),
	}, nil
}

// Reset clears the limiter state, including the current window.
func (l *Limiter) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.config.RedisTimeout)
	defer cancel()

	err := l.config.Redis.Del(ctx,
		l.keys.config,
		l.keys.stats,
		l.keys.instances,
		windowKey(l.keys.window, time.Now()),
	).Err()
	if err != nil {
		return gferrors.NewOperationError("distributed", "reset", err).WithContext(l.config.Key)
	}

	return l.initialize(ctx)
}

// Close deregisters this instance. The Redis client is owned by the caller.
func (l *Limiter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), l.config.RedisTimeout)
	defer cancel()

	if err := l.config.Redis.SRem(ctx, l.keys.instances, l.config.InstanceID).Err(); err != nil {
		return gferrors.NewOperationError("distributed", "close", err).WithContext(l.config.Key)
	}
	return nil
}

// Lua script for fixed window operations
const luaFixedWindowCheckAndIncrement = `
-- KEYS[1]: current window key
-- KEYS[2]: stats key
-- ARGV[1]: requested events
-- ARGV[2]: max events per window
-- ARGV[3]: window length (seconds)

local requests = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local window = tonumber(ARGV[3])

local used = tonumber(redis.call('GET', KEYS[1]) or "0")

redis.call('HINCRBY', KEYS[2], 'total_requests', requests)

if used + requests > limit then
    redis.call('HINCRBY', KEYS[2], 'denied_requests', requests)
    return 0
end

if redis.call('INCRBY', KEYS[1], requests) == requests then
    redis.call('EXPIRE', KEYS[1], window + 1)
end
redis.call('HINCRBY', KEYS[2], 'allowed_requests', requests)
return 1
`
