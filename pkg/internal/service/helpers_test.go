package service_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/configs"
	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/internal/storage/blob"
	"github.com/yeisme/cloudbox/pkg/internal/storage/storagetest"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

// env 单个测试使用的内存数据库、临时目录字节存储、内存 KV 与 gochannel.
type env struct {
	ctx   context.Context
	mgr   *storage.Manager
	cfg   *configs.AppConfig
	local *blob.LocalStore
}

func newEnv(t *testing.T, opts ...func(*configs.AppConfig)) *env {
	t.Helper()

	cfg := storagetest.Config(opts...)
	mgr, local := storagetest.NewManager(t, cfg)

	return &env{
		ctx:   ctxPkg.WithStorageManager(context.Background(), mgr),
		mgr:   mgr,
		cfg:   cfg,
		local: local,
	}
}

// user 创建一个指定配额的活跃用户.
func (e *env) user(t *testing.T, limit int64) *model.User {
	t.Helper()

	u := &model.User{
		Name:         "tester",
		Email:        model.NewID() + "@example.com",
		PasswordHash: "x",
		StorageLimit: limit,
		IsActive:     true,
	}
	require.NoError(t, e.mgr.DB.Create(u).Error)

	return u
}

func item(name, content string) types.UploadItem {
	return types.UploadItem{
		Name:     name,
		Size:     int64(len(content)),
		MimeType: "text/plain",
		Open: func() (types.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(content))), nil
		},
	}
}

// upload 上传单个文件.
func (e *env) upload(t *testing.T, userID string, folderID *string, name, content string) *model.File {
	t.Helper()

	resp, err := service.NewFileService(e.ctx).Upload(e.ctx, userID, folderID, []types.UploadItem{item(name, content)})
	require.NoError(t, err)
	require.Len(t, resp.Files, 1)

	return &resp.Files[0]
}

func (e *env) folder(t *testing.T, userID, name string, parentID *string) *model.Folder {
	t.Helper()

	f, err := service.NewFolderService(e.ctx).Create(e.ctx, userID, name, parentID)
	require.NoError(t, err)

	return f
}

// used 当前记录的用量.
func (e *env) used(t *testing.T, userID string) int64 {
	t.Helper()

	var u model.User
	require.NoError(t, e.mgr.DB.Where("id = ?", userID).First(&u).Error)

	return u.StorageUsed
}

// requireConsistent 记录的用量必须等于未删除文件大小之和.
func (e *env) requireConsistent(t *testing.T, userID string) {
	t.Helper()

	r, err := service.NewAccountant(e.ctx).Repair(e.ctx, userID, false)
	require.NoError(t, err)
	require.Zero(t, r.Drift, "recorded %d, actual %d", r.Recorded, r.Actual)
}

// removeBytes 直接删除底层字节，模拟外部丢失.
func (e *env) removeBytes(t *testing.T, f *model.File) {
	t.Helper()

	var rec model.File
	require.NoError(t, e.mgr.DB.Where("id = ?", f.ID).First(&rec).Error)
	require.NoError(t, e.local.Delete(context.Background(), rec.Location))
}

func (e *env) fileRecord(t *testing.T, id string) (model.File, bool) {
	t.Helper()

	var rec model.File

	err := e.mgr.DB.Where("id = ?", id).Limit(1).Find(&rec).Error
	require.NoError(t, err)

	return rec, rec.ID != ""
}

// subscribe 订阅主题，必须在触发事件之前调用.
func (e *env) subscribe(t *testing.T, topic string) <-chan *message.Message {
	t.Helper()

	ch, err := e.mgr.MQ.Subscribe(e.ctx, topic)
	require.NoError(t, err)

	return ch
}

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()

	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func ptr[T any](v T) *T { return &v }
