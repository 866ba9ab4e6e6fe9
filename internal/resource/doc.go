// Package resource implements the Controller for index-wide limits.
//
// The Controller manages three resource types:
//
//   - Memory: Track and limit the bytes of stored vectors (non-blocking, fail-fast)
//   - Concurrency: Limit batch insert workers
//   - IO: Rate-limit save throughput
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage tracking. AcquireMemory is non-blocking and returns immediately
// with ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	if err := rc.AcquireMemory(int64(dim * 4)); err != nil {
//	    // ErrMemoryLimitExceeded - caller decides retry/backoff
//	}
//
// # Worker Limits
//
//	rc := resource.NewController(resource.Config{MaxWorkers: 4})
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
// # IO Rate Limiting
//
// Token bucket rate limiter applied to artifact writes:
//
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
