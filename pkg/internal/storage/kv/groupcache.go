package kv

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/cloudbox/pkg/configs"
)

// GroupcacheKV 基于 Groupcache 的 KV 实现.
// groupcache 的条目不可变，每次 Set/Delete 递增键的代数，读取时带上代数，旧条目自然失效.
type GroupcacheKV struct {
	cache  *groupcache.Group    // Groupcache 缓存组
	peers  *groupcache.HTTPPool // 对等节点池
	getter groupcache.Getter    // 获取器
	data   map[string]gcEntry   // 本地存储数据
	gen    uint64               // 全局递增代数
	mu     sync.RWMutex         // 保护 data 的读写锁
}

type gcEntry struct {
	value []byte
	gen   uint64
}

// groupcacheGetter 实现 groupcache.Getter 接口.
type groupcacheGetter struct {
	kv *GroupcacheKV
}

func (g *groupcacheGetter) Get(ctx context.Context, versioned string, dest groupcache.Sink) error {
	key, gen, ok := splitVersionedKey(versioned)
	if !ok {
		return fmt.Errorf("malformed groupcache key: %s", versioned)
	}

	g.kv.mu.RLock()
	e, exists := g.kv.data[key]
	g.kv.mu.RUnlock()

	if !exists || e.gen != gen {
		return ErrKeyNotFound
	}

	if err := dest.SetBytes(e.value); err != nil {
		return fmt.Errorf("failed to set bytes to sink: %w", err)
	}

	return nil
}

func versionedKey(key string, gen uint64) string {
	return key + "#" + strconv.FormatUint(gen, 10)
}

func splitVersionedKey(s string) (string, uint64, bool) {
	i := strings.LastIndexByte(s, '#')
	if i < 0 {
		return "", 0, false
	}

	gen, err := strconv.ParseUint(s[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}

	return s[:i], gen, true
}

// NewGroupcacheKV 创建 Groupcache KV 实例.组名在进程内必须唯一.
func NewGroupcacheKV(ctx context.Context, config any) (KVStore, error) {
	gcConfig, ok := config.(*configs.GroupcacheKVConfig)
	if !ok || gcConfig == nil {
		return nil, fmt.Errorf("invalid Groupcache config")
	}

	if groupcache.GetGroup(gcConfig.Name) != nil {
		return nil, fmt.Errorf("groupcache group %q already registered", gcConfig.Name)
	}

	kv := &GroupcacheKV{
		data: make(map[string]gcEntry),
	}

	kv.getter = &groupcacheGetter{kv: kv}
	kv.cache = groupcache.NewGroup(gcConfig.Name, gcConfig.CacheBytes, kv.getter)

	// 如果有对等节点，设置 HTTP 池
	if len(gcConfig.Peers) > 0 {
		kv.peers = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		kv.peers.Set(gcConfig.Peers...)
	}

	return kv, nil
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	e, exists := g.data[key]
	g.mu.RUnlock()

	if !exists {
		return nil, ErrKeyNotFound
	}

	var data []byte
	if err := g.cache.Get(ctx, versionedKey(key, e.gen), groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, ErrKeyNotFound
	}

	val, expired, err := decodeWithTTL(data, time.Now())
	if err != nil {
		return nil, err
	}

	if expired {
		_ = g.Delete(ctx, key)

		return nil, ErrKeyNotFound
	}

	result := make([]byte, len(val))
	copy(result, val)

	return result, nil
}

// Set 设置键的值.
func (g *GroupcacheKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	data := make([]byte, len(encoded))
	copy(data, encoded)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.gen++
	g.data[key] = gcEntry{value: data, gen: g.gen}

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.data, key)

	return nil
}

// Exists 检查键是否存在.
func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := g.Get(ctx, key); err != nil {
		return false, nil
	}

	return true, nil
}

// Keys 获取所有键.
func (g *GroupcacheKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.data))
	for key := range g.data {
		if matchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close 关闭缓存.
func (g *GroupcacheKV) Close() error {
	// Groupcache 没有显式的关闭方法
	return nil
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
