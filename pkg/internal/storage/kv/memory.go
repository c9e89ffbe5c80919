package kv

import (
	"context"
	"sync"
	"time"

	"github.com/yeisme/cloudbox/pkg/configs"
)

type memoryEntry struct {
	value    []byte
	expireAt time.Time // 零值表示不过期
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// MemoryKV 基于 sync.Map 的内存 KV 实现，支持 TTL.
type MemoryKV struct {
	data sync.Map // key -> memoryEntry
	stop chan struct{}
	once sync.Once
}

// NewMemoryKV 创建内存 KV 实例，config 可为 nil 或 *configs.MemoryKVConfig.
func NewMemoryKV(ctx context.Context, config any) (KVStore, error) {
	m := &MemoryKV{stop: make(chan struct{})}

	if cfg, ok := config.(*configs.MemoryKVConfig); ok && cfg != nil && cfg.SweepInterval > 0 {
		go m.sweep(cfg.SweepInterval)
	}

	return m, nil
}

// sweep 定期清理过期键.
func (m *MemoryKV) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.data.Range(func(key, value any) bool {
				if e, ok := value.(memoryEntry); ok && e.expired(now) {
					m.data.Delete(key)
				}

				return true
			})
		}
	}
}

func (m *MemoryKV) load(key string) (memoryEntry, bool) {
	value, exists := m.data.Load(key)
	if !exists {
		return memoryEntry{}, false
	}

	e, ok := value.(memoryEntry)
	if !ok {
		return memoryEntry{}, false
	}

	if e.expired(time.Now()) {
		m.data.Delete(key)

		return memoryEntry{}, false
	}

	return e, true
}

// Get 获取键的值.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	e, ok := m.load(key)
	if !ok {
		return nil, ErrKeyNotFound
	}

	// 返回副本
	result := make([]byte, len(e.value))
	copy(result, e.value)

	return result, nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	e := memoryEntry{value: data}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}

	m.data.Store(key, e)

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.data.Delete(key)

	return nil
}

// Exists 检查键是否存在.
func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.load(key)

	return ok, nil
}

// Keys 获取所有键.
func (m *MemoryKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0)
	now := time.Now()

	m.data.Range(func(key, value any) bool {
		k, ok := key.(string)
		if !ok {
			return true
		}

		if e, ok := value.(memoryEntry); ok && e.expired(now) {
			return true
		}

		if matchPattern(pattern, k) {
			keys = append(keys, k)
		}

		return true
	})

	return keys, nil
}

// Close 停止后台清理.
func (m *MemoryKV) Close() error {
	m.once.Do(func() { close(m.stop) })

	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
