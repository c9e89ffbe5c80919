package kv_test

import (
	"context"
	crand "crypto/rand"
	"fmt"
	mrand "math/rand"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/storage/kv"
)

// newStores 返回可在单元测试中直接运行的后端.
func newStores(t *testing.T) map[string]kv.KVStore {
	t.Helper()

	ctx := context.Background()
	out := map[string]kv.KVStore{}

	mem, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	require.NoError(t, err)

	out["memory"] = mem

	bdg, err := kv.NewKVStore(ctx, kv.KVTypeBadger, &configs.BadgerKVConfig{InMemory: true})
	require.NoError(t, err)

	out["badger"] = bdg

	gc, err := kv.NewKVStore(ctx, kv.KVTypeGroupcache, &configs.GroupcacheKVConfig{
		Name:       fmt.Sprintf("test-groupcache-%s-%d", t.Name(), time.Now().UnixNano()),
		CacheBytes: 1 << 20,
	})
	require.NoError(t, err)

	out["groupcache"] = gc

	t.Cleanup(func() {
		for _, s := range out {
			_ = s.Close()
		}
	})

	return out
}

// TestKVStoreBasics 覆盖 Set/Get/Exists/Delete 以及不存在键的哨兵错误.
func TestKVStoreBasics(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "share:missing")
			assert.ErrorIs(t, err, kv.ErrKeyNotFound)

			require.NoError(t, store.Set(ctx, "share:abc", []byte("v1"), 0))

			got, err := store.Get(ctx, "share:abc")
			require.NoError(t, err)
			assert.Equal(t, []byte("v1"), got)

			ok, err := store.Exists(ctx, "share:abc")
			require.NoError(t, err)
			assert.True(t, ok)

			// 覆盖写后读到新值
			require.NoError(t, store.Set(ctx, "share:abc", []byte("v2"), 0))

			got, err = store.Get(ctx, "share:abc")
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), got)

			keys, err := store.Keys(ctx, "share:*")
			require.NoError(t, err)
			assert.Contains(t, keys, "share:abc")

			require.NoError(t, store.Delete(ctx, "share:abc"))

			_, err = store.Get(ctx, "share:abc")
			assert.ErrorIs(t, err, kv.ErrKeyNotFound)

			ok, err = store.Exists(ctx, "share:abc")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

// TestKVStoreTTL 过期后读取返回 ErrKeyNotFound.
func TestKVStoreTTL(t *testing.T) {
	ctx := context.Background()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, "ttl-key", []byte("x"), time.Second))

			_, err := store.Get(ctx, "ttl-key")
			require.NoError(t, err)

			assert.Eventually(t, func() bool {
				_, err := store.Get(ctx, "ttl-key")

				return err != nil
			}, 5*time.Second, 100*time.Millisecond)
		})
	}
}

// TestRegisteredKVTypes 所有内置后端均已注册.
func TestRegisteredKVTypes(t *testing.T) {
	types := kv.GetRegisteredKVTypes()
	for _, want := range []kv.KVType{kv.KVTypeMemory, kv.KVTypeBadger, kv.KVTypeGroupcache, kv.KVTypeRedis, kv.KVTypeNATS} {
		assert.Contains(t, types, want)
	}

	_, err := kv.NewKVStore(context.Background(), "etcd", nil)
	assert.Error(t, err)
}

func BenchmarkMemoryKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}

	benchKV(b, "memory", store)
	benchKVParallel(b, "memory", store)
	_ = store.Close()
}

func BenchmarkBadgerKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeBadger, &configs.BadgerKVConfig{InMemory: true})
	if err != nil {
		b.Fatalf("create badger kv: %v", err)
	}

	benchKV(b, "badger", store)
	benchKVParallel(b, "badger", store)
	_ = store.Close()
}

func BenchmarkGroupcacheKV(b *testing.B) {
	cfg := &configs.GroupcacheKVConfig{
		Name:       fmt.Sprintf("bench-groupcache-%d", time.Now().UnixNano()),
		CacheBytes: 32 * 1024 * 1024, // 32MB
		Peers:      []string{},
		Self:       "http://127.0.0.1:0",
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeGroupcache, cfg)
	if err != nil {
		b.Fatalf("create groupcache kv: %v", err)
	}

	benchKV(b, "groupcache", store)
	benchKVParallel(b, "groupcache", store)
	_ = store.Close()
}

// Optional: enable with ENABLE_REDIS_BENCH=1 and REDIS_ADDR set (default 127.0.0.1:6379).
func BenchmarkRedisKV(b *testing.B) {
	if os.Getenv("ENABLE_REDIS_BENCH") == "" {
		b.Skip("set ENABLE_REDIS_BENCH=1 to enable")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	cfg := &configs.RedisKVConfig{Addr: addr, Password: "", DB: 0}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeRedis, cfg)
	if err != nil {
		b.Skipf("redis not available: %v", err)
		return
	}

	benchKV(b, "redis", store)
	benchKVParallel(b, "redis", store)
	_ = store.Close()
}

// Optional: enable with ENABLE_NATS_BENCH=1 and NATS_URL set (default nats://127.0.0.1:4222)
func BenchmarkNATSKV(b *testing.B) {
	if os.Getenv("ENABLE_NATS_BENCH") == "" {
		b.Skip("set ENABLE_NATS_BENCH=1 to enable")
	}

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://127.0.0.1:4222"
	}

	bucket := os.Getenv("NATS_BUCKET")
	if bucket == "" {
		bucket = "bench-kv"
	}

	cfg := &configs.NATSKVConfig{URL: url, User: "", Password: "", Bucket: bucket}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeNATS, cfg)
	if err != nil {
		b.Skipf("nats not available: %v", err)
		return
	}

	benchKV(b, "nats", store)
	benchKVParallel(b, "nats", store)
	_ = store.Close()
}

// randBytes returns n random bytes, seeded reproducibly for bench.
func randBytes(n int) []byte {
	b := make([]byte, n)
	// Try crypto/rand; if it fails (unlikely in tests), fallback to deterministic PRNG.
	if _, err := crand.Read(b); err != nil {
		mr := mrand.New(mrand.NewSource(42))
		for i := range b {
			b[i] = byte(mr.Intn(256))
		}
	}

	return b
}

// benchKV 执行基本的 Set/Get/Delete 基准测试.
func benchKV(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	sizes := []int{32, 1024, 64 * 1024}
	ttls := []time.Duration{0, 5 * time.Second}

	for _, size := range sizes {
		payload := randBytes(size)
		for _, ttl := range ttls {
			b.Run(fmt.Sprintf("%s/size=%d/ttl=%s", name, size, ttl), func(b *testing.B) {
				// ensure clean
				b.ReportAllocs()

				for i := 0; b.Loop(); i++ {
					// Use hyphens to ensure keys are valid for NATS KV
					key := fmt.Sprintf("bench-%s-%d", name, i)
					if err := store.Set(ctx, key, payload, ttl); err != nil {
						b.Fatalf("set failed: %v", err)
					}

					if _, err := store.Get(ctx, key); err != nil {
						b.Fatalf("get failed: %v", err)
					}

					if err := store.Delete(ctx, key); err != nil {
						b.Fatalf("delete failed: %v", err)
					}
				}
			})
		}
	}
}

// benchKVParallel 执行并行的 Set/Get/Delete 基准测试.
func benchKVParallel(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	size := 1024
	payload := randBytes(size)

	var ctr uint64

	b.Run(fmt.Sprintf("%s/parallel", name), func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				i := atomic.AddUint64(&ctr, 1)

				// Use hyphens to ensure keys are valid for NATS KV
				key := fmt.Sprintf("bench-%s-p-%d", name, i)
				if err := store.Set(ctx, key, payload, 0); err != nil {
					b.Fatalf("set failed: %v", err)
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Fatalf("get failed: %v", err)
				}

				if err := store.Delete(ctx, key); err != nil {
					b.Fatalf("delete failed: %v", err)
				}
			}
		})
	})
}
