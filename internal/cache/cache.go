// Package cache defines the key-value cache used for code descriptions.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-valued key-value cache. A zero ttl means no expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
