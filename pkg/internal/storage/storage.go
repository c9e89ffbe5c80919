// Package storage 聚合元数据库、字节存储、KV 与消息队列.
//
// Example:
//
//	mgr, err := storage.Init(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	files := mgr.GetDBClient().Model(&model.File{})
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yeisme/cloudbox/pkg/cache"
	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/storage/blob"
	dbc "github.com/yeisme/cloudbox/pkg/internal/storage/db"
	kvc "github.com/yeisme/cloudbox/pkg/internal/storage/kv"
	mqc "github.com/yeisme/cloudbox/pkg/internal/storage/mq"
	nlog "github.com/yeisme/cloudbox/pkg/log"
	"github.com/yeisme/cloudbox/pkg/queue"
)

// EventProducer 事件头中的生产者名称.
const EventProducer = "cloudbox"

// Manager 聚合所有存储资源.
type Manager struct {
	DB   *dbc.Client
	Blob blob.Store
	KV   *kvc.Client
	MQ   *mqc.Client

	// Events 基于 MQ 发布者的领域事件出口.
	Events *queue.Emitter
	// ShareCache 分享令牌快照缓存.
	ShareCache *cache.Cache
	Config     *configs.AppConfig
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 使用给定配置初始化全局 Manager，重复调用只返回已初始化实例.
func Init(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	mgrOnce.Do(func() {
		mgr, mgrErr = New(ctx, cfg)
	})

	return mgr, mgrErr
}

// New 依次连接 DB、字节存储、KV 与 MQ，并迁移表结构.
// 任一步失败时关闭已打开的资源.
func New(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{Config: cfg}

	var err error

	if m.DB, err = dbc.New(ctx, &cfg.DB); err != nil {
		return nil, err
	}

	if err = m.DB.Migrate(ctx); err != nil {
		m.Close()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		if err := m.DB.RegisterGORMMetrics(); err != nil {
			nlog.Logger().Warn().Err(err).Msg("GORM metrics 注册失败")
		}
	}

	if m.Blob, err = blob.New(ctx, cfg); err != nil {
		m.Close()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	if m.KV, err = kvc.NewKVClient(ctx, &cfg.KV); err != nil {
		m.Close()
		return nil, fmt.Errorf("init kv: %w", err)
	}

	if m.MQ, err = mqc.New(ctx, &cfg.MQ); err != nil {
		m.Close()
		return nil, err
	}

	m.Events = queue.NewEmitter(m.MQ.Publisher(), cfg.Events, EventProducer)
	m.ShareCache = cache.New(m.KV, cfg.Share.CachePrefix)

	nlog.Logger().Info().
		Str("db", cfg.DB.GetDBType()).
		Str("blob", string(cfg.Storage.Type)).
		Str("kv", string(cfg.KV.Type)).
		Str("mq", string(cfg.MQ.Type)).
		Msg("storage manager initialized")

	return m, nil
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client { return m.DB }

// GetBlobStore 获取字节存储.
func (m *Manager) GetBlobStore() blob.Store { return m.Blob }

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client { return m.KV }

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client { return m.MQ }

// Component 健康检查的组件名.
type Component string

const (
	ComponentDB   Component = "db"
	ComponentBlob Component = "blob"
	ComponentKV   Component = "kv"
	ComponentMQ   Component = "mq"
)

const healthProbeKey = "health:probe"

// Check 检查单个组件.
func (m *Manager) Check(ctx context.Context, c Component) error {
	switch c {
	case ComponentDB:
		if m.DB == nil {
			return errors.New("db not initialized")
		}

		return m.DB.Ping(ctx)
	case ComponentBlob:
		if m.Blob == nil {
			return errors.New("blob store not initialized")
		}

		return m.Blob.Ping(ctx)
	case ComponentKV:
		if m.KV == nil {
			return errors.New("kv not initialized")
		}

		if err := m.KV.Set(ctx, healthProbeKey, []byte("ok"), time.Minute); err != nil {
			return err
		}

		_, err := m.KV.Get(ctx, healthProbeKey)

		return err
	case ComponentMQ:
		if m.MQ == nil {
			return mqc.ErrNotInitialized
		}

		return nil
	default:
		return fmt.Errorf("unknown component %q", c)
	}
}

// Close 关闭所有已打开的资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.Blob != nil {
		errs = append(errs, m.Blob.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
