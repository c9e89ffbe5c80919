// Package cache 提供基于键值存储的泛型缓存.
//
// 值使用 sonic 编码，键统一加上前缀.
// 缓存读写失败不应影响主流程：Get 未命中与出错都返回 ok=false，由调用方回源.
//
//	c := cache.New(kvClient, "share:")
//	snap, err := cache.GetOrSet(ctx, c, token, ttl, func(ctx context.Context) (Snapshot, error) {
//		return loadFromDB(ctx, token)
//	})
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/cloudbox/pkg/internal/storage/kv"
)

// maxRawKeyLen 超过该长度的键使用 xxhash 摘要.
const maxRawKeyLen = 128

// Cache 基于 KV 存储的缓存.
type Cache struct {
	store  kv.KVStore
	prefix string
	group  singleflight.Group
}

// New 创建缓存实例，store 为 nil 时所有操作都视为未命中.
func New(store kv.KVStore, prefix string) *Cache {
	return &Cache{store: store, prefix: prefix}
}

// Key 返回带前缀的完整键.
func (c *Cache) Key(key string) string {
	if len(key) > maxRawKeyLen {
		key = "h" + strconv.FormatUint(xxhash.Sum64String(key), 16)
	}

	return c.prefix + key
}

// Get 读取缓存，ok=false 表示未命中或不可用.
func Get[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var zero T

	if c == nil || c.store == nil {
		return zero, false, nil
	}

	data, err := c.store.Get(ctx, c.Key(key))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return zero, false, nil
	}

	if err != nil {
		return zero, false, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, true, nil
}

// Set 写入缓存，ttl<=0 时不写.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	if c == nil || c.store == nil || ttl <= 0 {
		return nil
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.store.Set(ctx, c.Key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil || c.store == nil {
		return nil
	}

	return c.store.Delete(ctx, c.Key(key))
}

// GetOrSet 未命中时调用 load 回源并写回，同一键的并发回源合并为一次.
// ttlFn 根据回源结果决定缓存时长，返回 <=0 不缓存.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, ttlFn func(T) time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok, err := Get[T](ctx, c, key); err == nil && ok {
		return v, nil
	}

	if c == nil {
		return load(ctx)
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}

		// 写回失败只影响命中率
		_ = Set(ctx, c, key, v, ttlFn(v))

		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return res.(T), nil
}

// Clear 删除本前缀下的所有键.
func (c *Cache) Clear(ctx context.Context) error {
	if c == nil || c.store == nil {
		return nil
	}

	keys, err := c.store.Keys(ctx, c.prefix+"*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil {
			return err
		}
	}

	return nil
}
