package cache

import (
	"context"
	"time"
)

// Valkey is the cache surface the core depends on: small-value caching for
// dashboard reads, rate-limiter buckets, and short-lived distributed locks
// that keep scheduler replicas from running the same evaluation pass.
type Valkey interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// AcquireLock is a SET NX lease; false means another holder has it.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error

	HealthCheck(ctx context.Context) error
}
