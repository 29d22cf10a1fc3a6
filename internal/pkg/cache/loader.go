package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Loader performs read-through lookups. Concurrent misses for one key share a
// single fetch, and cache failures degrade to a direct fetch.
type Loader struct {
	cache  Cache
	group  singleflight.Group
	logger logrus.FieldLogger
}

func NewLoader(c Cache, logger logrus.FieldLogger) *Loader {
	return &Loader{cache: c, logger: logger}
}

func (l *Loader) Cache() Cache {
	return l.cache
}

// Invalidate drops keys, logging instead of failing
func (l *Loader) Invalidate(ctx context.Context, keys ...string) {
	if err := l.cache.Delete(ctx, keys...); err != nil {
		l.logger.WithError(err).WithField("keys", keys).Warn("cache invalidation failed")
	}
}

// InvalidatePrefix drops every key under prefix, logging instead of failing
func (l *Loader) InvalidatePrefix(ctx context.Context, prefix string) {
	if err := l.cache.ClearByPrefix(ctx, prefix); err != nil {
		l.logger.WithError(err).WithField("prefix", prefix).Warn("cache prefix invalidation failed")
	}
}

// Fetch returns the cached value at key or loads, stores and returns it
func Fetch[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	err := l.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		l.logger.WithError(err).WithField("key", key).Warn("cache read failed, falling back to store")
	}

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := l.cache.Set(ctx, key, value, ttl); err != nil {
			l.logger.WithError(err).WithField("key", key).Warn("cache write failed")
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
