package cache

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))

	var v int
	require.NoError(t, c.Get(ctx, "a", &v))
	require.NoError(t, c.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, c.Len())
	assert.ErrorIs(t, c.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(10)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	now = now.Add(2 * time.Minute)

	var v string
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrCacheMiss)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_ClearByPrefix(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "product:1", 1, 0))
	require.NoError(t, c.Set(ctx, "product:2", 2, 0))
	require.NoError(t, c.Set(ctx, "user:1", 3, 0))

	require.NoError(t, c.ClearByPrefix(ctx, "product:"))
	assert.Equal(t, 1, c.Len())
}

type failingCache struct{}

func (failingCache) Get(context.Context, string, any) error { return errors.New("connection refused") }
func (failingCache) Set(context.Context, string, any, time.Duration) error {
	return errors.New("connection refused")
}
func (failingCache) Delete(context.Context, ...string) error { return errors.New("connection refused") }
func (failingCache) ClearByPrefix(context.Context, string) error {
	return errors.New("connection refused")
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestFetch_ReadThrough(t *testing.T) {
	l := NewLoader(NewMemoryCache(10), quietLogger())
	ctx := context.Background()
	var calls int32

	load := func(context.Context) (*cachedProduct, error) {
		atomic.AddInt32(&calls, 1)
		return &cachedProduct{ID: 1, Name: "Pearl Necklace"}, nil
	}

	first, err := Fetch(ctx, l, "product:1", time.Minute, load)
	require.NoError(t, err)
	second, err := Fetch(ctx, l, "product:1", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, "Pearl Necklace", second.Name)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_CacheDownFallsBackToStore(t *testing.T) {
	l := NewLoader(failingCache{}, quietLogger())

	got, err := Fetch(context.Background(), l, "user:5", time.Minute, func(context.Context) (string, error) {
		return "from-store", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "from-store", got)

	l.Invalidate(context.Background(), "user:5")
	l.InvalidatePrefix(context.Background(), "user:")
}

func TestFetch_CoalescesConcurrentMisses(t *testing.T) {
	l := NewLoader(NewMemoryCache(10), quietLogger())
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Fetch(context.Background(), l, "product:7", time.Minute, func(context.Context) (int, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 7, nil
			})
			assert.NoError(t, err)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Less(t, atomic.LoadInt32(&calls), int32(8))
}
