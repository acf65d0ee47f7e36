// Package cache defines the port interface for byte-value caching, used for
// derived data that is cheap to recompute (directory listings, rendered
// suggestion lists). The version-keyed analysis cache is not behind this
// port; it has its own reference-stability contract.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
