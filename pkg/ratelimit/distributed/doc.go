// Package distributed provides a Redis-backed fixed-window rate limiter
// shared by every process that uses the same key.
//
// Each one-second window has its own counter in Redis. A Lua script checks
// and increments the counter atomically, so instances never over-admit even
// under contention. Statistics and the set of live instances are kept next
// to the counters.
//
// # Quick Start
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//
//	limiter, err := distributed.NewLimiter(distributed.Config{
//		Redis:           rdb,
//		Key:             "thumbnails",
//		Rate:            50, // per second, across all instances
//		FallbackToLocal: true,
//	})
//	if err != nil {
//		return err
//	}
//	defer limiter.Close()
//
//	if ok, _ := limiter.Allow(ctx); !ok {
//		return gferrors.ErrRateLimited
//	}
//
// # Worker pools
//
// AsPoolLimiter plugs the limiter into workerpool.Config.Limiter. Each task
// then waits for one event of the shared budget before it runs:
//
//	pool, _ := workerpool.NewWithConfig(workerpool.Config{
//		WorkerCount: 8,
//		Limiter:     limiter.AsPoolLimiter(),
//	})
//
// # Fallback
//
// With FallbackToLocal set, Redis failures are answered by a local
// *rate.Limiter (Config.LocalLimiter, or one allowing Rate events per second).
// Without it, Redis failures are returned as *errors.OperationError.
package distributed
