package cache_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/cache"
	"github.com/yeisme/cloudbox/pkg/internal/storage/kv"
)

type snapshot struct {
	FileID string `json:"file_id"`
	Size   int64  `json:"size"`
}

func newCache(t *testing.T) (*cache.Cache, kv.KVStore) {
	t.Helper()

	store, err := kv.NewMemoryKV(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return cache.New(store, "test:"), store
}

func fixedTTL(d time.Duration) func(snapshot) time.Duration {
	return func(snapshot) time.Duration { return d }
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c, store := newCache(t)

	_, ok, err := cache.Get[snapshot](ctx, c, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, c, "a", snapshot{FileID: "f1", Size: 3}, time.Minute))

	got, ok, err := cache.Get[snapshot](ctx, c, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, snapshot{FileID: "f1", Size: 3}, got)

	exists, err := store.Exists(ctx, "test:a")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "a"))

	_, ok, err = cache.Get[snapshot](ctx, c, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetWithoutTTLIsNoop(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	require.NoError(t, cache.Set(ctx, c, "a", snapshot{FileID: "f1"}, 0))

	_, ok, err := cache.Get[snapshot](ctx, c, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOrSetLoadsOnce(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	var calls int32

	load := func(context.Context) (snapshot, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)

		return snapshot{FileID: "f1"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			v, err := cache.GetOrSet(ctx, c, "k", fixedTTL(time.Minute), load)
			assert.NoError(t, err)
			assert.Equal(t, "f1", v.FileID)
		}()
	}

	wg.Wait()

	// 之后的读取命中缓存
	_, err := cache.GetOrSet(ctx, c, "k", fixedTTL(time.Minute), load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrSetPropagatesError(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)
	boom := errors.New("boom")

	_, err := cache.GetOrSet(ctx, c, "k", fixedTTL(time.Minute), func(context.Context) (snapshot, error) {
		return snapshot{}, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok, _ := cache.Get[snapshot](ctx, c, "k")
	assert.False(t, ok)
}

func TestLongKeysAreHashed(t *testing.T) {
	c, _ := newCache(t)

	long := strings.Repeat("x", 300)
	key := c.Key(long)

	assert.True(t, strings.HasPrefix(key, "test:h"))
	assert.Less(t, len(key), 40)
	assert.Equal(t, key, c.Key(long))
	assert.Equal(t, "test:short", c.Key("short"))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c, store := newCache(t)

	require.NoError(t, cache.Set(ctx, c, "a", snapshot{}, time.Minute))
	require.NoError(t, cache.Set(ctx, c, "b", snapshot{}, time.Minute))
	require.NoError(t, store.Set(ctx, "other:c", []byte("1"), time.Minute))

	require.NoError(t, c.Clear(ctx))

	keys, err := store.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"other:c"}, keys)
}

func TestNilCache(t *testing.T) {
	ctx := context.Background()

	var c *cache.Cache

	v, err := cache.GetOrSet(ctx, c, "k", fixedTTL(time.Minute), func(context.Context) (snapshot, error) {
		return snapshot{FileID: "direct"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", v.FileID)
	assert.NoError(t, c.Delete(ctx, "k"))
}
