// Package storagetest 为测试构建单进程 Manager：内存 SQLite、临时目录字节存储、内存 KV 与 gochannel.
package storagetest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/cache"
	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/internal/storage/blob"
	dbc "github.com/yeisme/cloudbox/pkg/internal/storage/db"
	kvc "github.com/yeisme/cloudbox/pkg/internal/storage/kv"
	mqc "github.com/yeisme/cloudbox/pkg/internal/storage/mq"
	"github.com/yeisme/cloudbox/pkg/queue"
)

// Config 测试默认配置：低 bcrypt 成本与一分钟的分享缓存.
func Config(opts ...func(*configs.AppConfig)) *configs.AppConfig {
	cfg := configs.DefaultConfig()
	cfg.Auth.BcryptCost = 4
	cfg.Share.CacheTTL = time.Minute

	for _, o := range opts {
		o(&cfg)
	}

	return &cfg
}

// NewManager 按测试名创建隔离的 Manager，测试结束时关闭.
func NewManager(t testing.TB, cfg *configs.AppConfig) (*storage.Manager, *blob.LocalStore) {
	t.Helper()

	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg.DB = configs.DBConfig{
		Type:         configs.SQLite,
		Database:     name,
		DSN:          "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	}

	db, err := dbc.New(ctx, &cfg.DB)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))

	local, err := blob.NewLocalStore(configs.LocalStorageConfig{Root: t.TempDir()})
	require.NoError(t, err)

	store, err := kvc.NewMemoryKV(ctx, nil)
	require.NoError(t, err)

	kv := &kvc.Client{KVStore: store}

	mq, err := mqc.New(ctx, &configs.MQConfig{
		Type:   configs.MQTypeMemory,
		Memory: configs.MQMemoryConfig{OutputBuffer: 64},
	})
	require.NoError(t, err)

	mgr := &storage.Manager{
		DB:         db,
		Blob:       local,
		KV:         kv,
		MQ:         mq,
		Events:     queue.NewEmitter(mq.Publisher(), cfg.Events, storage.EventProducer),
		ShareCache: cache.New(kv, cfg.Share.CachePrefix),
		Config:     cfg,
	}

	t.Cleanup(func() { _ = mgr.Close() })

	return mgr, local
}
