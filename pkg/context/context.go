// Package context 在请求上下文中传递存储管理器与当前用户.
package context

import (
	"context"

	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/internal/storage/blob"
	dbc "github.com/yeisme/cloudbox/pkg/internal/storage/db"
	kvc "github.com/yeisme/cloudbox/pkg/internal/storage/kv"
	mqc "github.com/yeisme/cloudbox/pkg/internal/storage/mq"
	"github.com/yeisme/cloudbox/pkg/scheduler"
)

type ContextKey string

const (
	StorageManagerKey ContextKey = "storageManager"
	UserIDKey         ContextKey = "userID"
	UserRoleKey       ContextKey = "userRole"
	ClientInfoKey     ContextKey = "clientInfo"
	SchedulerKey      ContextKey = "scheduler"
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	if mgr, ok := ctx.Value(StorageManagerKey).(*storage.Manager); ok {
		return mgr
	}

	return nil
}

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetDBClient()
	}

	return nil
}

// GetBlobStore 从 context 中获取字节存储.
func GetBlobStore(ctx context.Context) blob.Store {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetBlobStore()
	}

	return nil
}

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetMQClient()
	}

	return nil
}

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetKVClient()
	}

	return nil
}

// WithScheduler 记录调度器，未启用定时任务时为 nil.
func WithScheduler(ctx context.Context, sched *scheduler.Scheduler) context.Context {
	return context.WithValue(ctx, SchedulerKey, sched)
}

// GetScheduler 从 context 中获取调度器.
func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	sched, _ := ctx.Value(SchedulerKey).(*scheduler.Scheduler)
	return sched
}

// WithUser 记录已认证用户.
func WithUser(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRoleKey, role)
}

// GetUserID 当前用户 ID，未认证时为空.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// GetUserRole 当前用户角色.
func GetUserRole(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

// ClientInfo 请求来源，写入活动日志.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// WithClientInfo 记录请求来源.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, ClientInfoKey, ClientInfo{IP: ip, UserAgent: userAgent})
}

// GetClientInfo 请求来源，未设置时为零值.
func GetClientInfo(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(ClientInfoKey).(ClientInfo)
	return info
}
