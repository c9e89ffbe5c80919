package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/yeisme/cloudbox/pkg/configs"
)

// BadgerKV 基于嵌入式 Badger 的 KV 实现，TTL 由 Badger 原生支持.
type BadgerKV struct {
	db *badger.DB
}

// NewBadgerKV 创建 Badger KV 实例，Path 为空或 InMemory 为真时使用内存模式.
func NewBadgerKV(ctx context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.BadgerKVConfig)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("invalid Badger config")
	}

	var opts badger.Options
	if cfg.InMemory || cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", cfg.Path, err)
	}

	return &BadgerKV{db: db}, nil
}

// Get 获取键的值.
func (b *BadgerKV) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		out, err = item.ValueCopy(nil)

		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	return out, nil
}

// Set 设置键的值.
func (b *BadgerKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}

		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

// Delete 删除键.
func (b *BadgerKV) Delete(ctx context.Context, key string) error {
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

// Exists 检查键是否存在.
func (b *BadgerKV) Exists(ctx context.Context, key string) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))

		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}

	return true, nil
}

// Keys 遍历键，pattern 支持结尾 * 的前缀匹配.
func (b *BadgerKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			k := string(it.Item().KeyCopy(nil))
			if matchPattern(pattern, k) {
				keys = append(keys, k)
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	return keys, nil
}

// Close 关闭数据库.
func (b *BadgerKV) Close() error {
	return b.db.Close()
}

func init() {
	RegisterKVFactory(KVTypeBadger, NewBadgerKV)
}
