// Package cache provides the key/value accelerator used in front of the
// primary stores. It is never the system of record.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache stores JSON-serialisable values under string keys
type Cache interface {
	// Get decodes the value stored at key into dest, or returns ErrCacheMiss
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	ClearByPrefix(ctx context.Context, prefix string) error
}
