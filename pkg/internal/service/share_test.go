package service_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/cache"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

func shareRecord(t *testing.T, e *env, token string) model.Share {
	t.Helper()

	var sh model.Share
	require.NoError(t, e.mgr.DB.Where("share_token = ?", token).First(&sh).Error)

	return sh
}

func TestShareCreateAndResolve(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	f := e.upload(t, u.ID, nil, "a.txt", "shared bytes")
	svc := service.NewShareService(e.ctx)

	resp, err := svc.Create(e.ctx, u.ID, f.ID, nil, "http://localhost:3001/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001/share/"+resp.ShareToken, resp.ShareURL)
	assert.Equal(t, f.ID, resp.File.ID)

	rec, _ := e.fileRecord(t, f.ID)
	assert.True(t, rec.IsShared)
	require.NotNil(t, rec.ShareToken)
	assert.Equal(t, resp.ShareToken, *rec.ShareToken)

	view, err := svc.View(e.ctx, resp.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, "tester", view.SharedBy)
	assert.Equal(t, int64(1), view.AccessCount)

	content, err := svc.OpenShared(e.ctx, resp.ShareToken)
	require.NoError(t, err)

	defer content.Body.Close()

	data, err := io.ReadAll(content.Body)
	require.NoError(t, err)
	assert.Equal(t, "shared bytes", string(data))
	assert.Equal(t, int64(2), shareRecord(t, e, resp.ShareToken).AccessCount)

	shared, err := svc.ListShared(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, shared, 1)
}

func TestShareExpiresImmediately(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	f := e.upload(t, u.ID, nil, "a.txt", "x")
	svc := service.NewShareService(e.ctx)

	resp, err := svc.Create(e.ctx, u.ID, f.ID, ptr(0), "http://box")
	require.NoError(t, err)

	_, _, err = svc.Resolve(e.ctx, resp.ShareToken)
	require.ErrorIs(t, err, errs.ErrShareExpired)
	assert.Zero(t, shareRecord(t, e, resp.ShareToken).AccessCount)
}

func TestShareExpiresInRange(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	f := e.upload(t, u.ID, nil, "a.txt", "x")
	svc := service.NewShareService(e.ctx)

	_, err := svc.Create(e.ctx, u.ID, f.ID, ptr(-1), "http://box")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Create(e.ctx, u.ID, f.ID, ptr(e.cfg.Share.MaxExpireDays+1), "http://box")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestReshareInvalidatesOldToken(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	f := e.upload(t, u.ID, nil, "a.txt", "x")
	svc := service.NewShareService(e.ctx)

	first, err := svc.Create(e.ctx, u.ID, f.ID, nil, "http://box")
	require.NoError(t, err)

	// 预热缓存
	_, _, err = svc.Resolve(e.ctx, first.ShareToken)
	require.NoError(t, err)

	second, err := svc.Create(e.ctx, u.ID, f.ID, ptr(7), "http://box")
	require.NoError(t, err)
	assert.NotEqual(t, first.ShareToken, second.ShareToken)

	_, _, err = svc.Resolve(e.ctx, first.ShareToken)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, _, err = svc.Resolve(e.ctx, second.ShareToken)
	require.NoError(t, err)

	assert.False(t, shareRecord(t, e, first.ShareToken).IsActive)
}

func TestStaleCachedSnapshotIsRejected(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	f := e.upload(t, u.ID, nil, "a.txt", "x")
	svc := service.NewShareService(e.ctx)

	resp, err := svc.Create(e.ctx, u.ID, f.ID, nil, "http://box")
	require.NoError(t, err)

	_, snap, err := svc.Resolve(e.ctx, resp.ShareToken)
	require.NoError(t, err)

	// 绕过服务直接停用，缓存仍保留快照
	require.NoError(t, e.mgr.DB.Model(&model.Share{}).Where("share_token = ?", resp.ShareToken).
		Update("is_active", false).Error)

	cached, ok, err := cache.Get[types.ShareSnapshot](e.ctx, e.mgr.ShareCache, resp.ShareToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap.ShareID, cached.ShareID)

	_, _, err = svc.Resolve(e.ctx, resp.ShareToken)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, ok, err = cache.Get[types.ShareSnapshot](e.ctx, e.mgr.ShareCache, resp.ShareToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRevokeAndTrashedFileShares(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	f := e.upload(t, u.ID, nil, "a.txt", "x")
	g := e.upload(t, u.ID, nil, "b.txt", "y")
	svc := service.NewShareService(e.ctx)

	rf, err := svc.Create(e.ctx, u.ID, f.ID, nil, "http://box")
	require.NoError(t, err)
	rg, err := svc.Create(e.ctx, u.ID, g.ID, nil, "http://box")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(e.ctx, u.ID, f.ID))

	_, _, err = svc.Resolve(e.ctx, rf.ShareToken)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	rec, _ := e.fileRecord(t, f.ID)
	assert.False(t, rec.IsShared)
	assert.Nil(t, rec.ShareToken)

	// 回收站中的文件不能通过分享访问，恢复后重新可用
	require.NoError(t, service.NewFileService(e.ctx).Trash(e.ctx, u.ID, g.ID))

	_, _, err = svc.Resolve(e.ctx, rg.ShareToken)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = service.NewTrashService(e.ctx).Restore(e.ctx, u.ID, g.ID)
	require.NoError(t, err)

	_, _, err = svc.Resolve(e.ctx, rg.ShareToken)
	require.NoError(t, err)

	// 永久删除后分享记录失效
	require.NoError(t, service.NewFileService(e.ctx).Trash(e.ctx, u.ID, g.ID))
	require.NoError(t, service.NewTrashService(e.ctx).Purge(e.ctx, u.ID, g.ID))
	assert.False(t, shareRecord(t, e, rg.ShareToken).IsActive)

	_, _, err = svc.Resolve(e.ctx, rg.ShareToken)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, _, err = svc.Resolve(e.ctx, "unknown")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestShareOfTrashedFileIsRefused(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	f := e.upload(t, u.ID, nil, "a.txt", "x")
	require.NoError(t, service.NewFileService(e.ctx).Trash(e.ctx, u.ID, f.ID))

	svc := service.NewShareService(e.ctx)

	_, err := svc.Create(e.ctx, u.ID, f.ID, nil, "http://box")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, svc.Revoke(e.ctx, u.ID, f.ID), errs.ErrNotFound)
}

func TestSharedDownloadHealsOrphan(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	f := e.upload(t, u.ID, nil, "a.txt", "abc")
	svc := service.NewShareService(e.ctx)

	resp, err := svc.Create(e.ctx, u.ID, f.ID, nil, "http://box")
	require.NoError(t, err)

	e.removeBytes(t, f)

	_, err = svc.OpenShared(e.ctx, resp.ShareToken)
	require.ErrorIs(t, err, errs.ErrNotFound)
	assert.Zero(t, e.used(t, u.ID))
	e.requireConsistent(t, u.ID)

	// 失败的访问不计数
	assert.Zero(t, shareRecord(t, e, resp.ShareToken).AccessCount)
}

func TestFailedSharedThumbnailIsNotCounted(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	f := e.upload(t, u.ID, nil, "notes.txt", "plain text")

	resp, err := service.NewShareService(e.ctx).Create(e.ctx, u.ID, f.ID, nil, "http://box")
	require.NoError(t, err)

	_, err = service.NewThumbnailService(e.ctx).ForShare(e.ctx, resp.ShareToken)
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Zero(t, shareRecord(t, e, resp.ShareToken).AccessCount)

	c, err := service.NewShareService(e.ctx).OpenShared(e.ctx, resp.ShareToken)
	require.NoError(t, err)
	require.NoError(t, c.Body.Close())
	assert.Equal(t, int64(1), shareRecord(t, e, resp.ShareToken).AccessCount)
}
