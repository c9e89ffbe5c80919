package service_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/types"
	"github.com/yeisme/cloudbox/pkg/queue"
)

func TestUploadAccountsUsage(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	svc := service.NewFileService(e.ctx)

	resp, err := svc.Upload(e.ctx, u.ID, nil, []types.UploadItem{
		item("a.txt", "hello"),
		item("b.txt", "world!!"),
	})
	require.NoError(t, err)
	assert.Len(t, resp.Files, 2)
	assert.Empty(t, resp.Failed)
	assert.Equal(t, int64(12), resp.Bytes)
	assert.Equal(t, int64(12), e.used(t, u.ID))
	e.requireConsistent(t, u.ID)

	rc, err := svc.Open(e.ctx, u.ID, resp.Files[0].ID, model.ActionDownload)
	require.NoError(t, err)

	defer rc.Body.Close()

	data, err := io.ReadAll(rc.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "a.txt", rc.Name)
}

func TestUploadQuotaRejectsWholeBatch(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 10)
	events := e.subscribe(t, queue.TopicQuotaExceeded)

	_, err := service.NewFileService(e.ctx).Upload(e.ctx, u.ID, nil, []types.UploadItem{
		item("a.txt", "123456"),
		item("b.txt", "123456"),
	})
	require.ErrorIs(t, err, errs.ErrQuotaExceeded)

	var n int64
	require.NoError(t, e.mgr.DB.Model(&model.File{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.Zero(t, n)
	assert.Zero(t, e.used(t, u.ID))

	env, err := queue.ParseWatermillMessage[queue.QuotaExceededPayload](receive(t, events))
	require.NoError(t, err)
	assert.Equal(t, int64(12), env.Payload.Requested)
	assert.Equal(t, int64(10), env.Payload.Limit)
}

func TestUploadExactlyAtLimit(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 10)

	e.upload(t, u.ID, nil, "a.txt", "1234567890")
	assert.Equal(t, int64(10), e.used(t, u.ID))

	_, err := service.NewFileService(e.ctx).Upload(e.ctx, u.ID, nil, []types.UploadItem{item("b.txt", "x")})
	assert.ErrorIs(t, err, errs.ErrQuotaExceeded)
}

func TestUploadSkipsFailedItems(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)

	broken := item("broken.txt", "zzz")
	broken.Open = func() (types.ReadCloser, error) { return nil, errors.New("disk gone") }

	resp, err := service.NewFileService(e.ctx).Upload(e.ctx, u.ID, nil, []types.UploadItem{
		item("ok.txt", "fine"),
		broken,
	})
	require.NoError(t, err)
	require.Len(t, resp.Files, 1)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, "broken.txt", resp.Failed[0].Name)
	assert.Equal(t, int64(4), e.used(t, u.ID))
	e.requireConsistent(t, u.ID)
}

func TestUploadValidation(t *testing.T) {
	e := newEnv(t, func(c *configs.AppConfig) { c.Quota.MaxFilesPerUpload = 2 })
	u := e.user(t, 1<<20)
	svc := service.NewFileService(e.ctx)

	_, err := svc.Upload(e.ctx, u.ID, nil, nil)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Upload(e.ctx, u.ID, nil, []types.UploadItem{item("..", "x")})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Upload(e.ctx, u.ID, nil, []types.UploadItem{item("a", "1"), item("b", "2"), item("c", "3")})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Upload(e.ctx, u.ID, ptr("missing"), []types.UploadItem{item("a", "1")})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUploadKeepsNameVerbatim(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)

	for _, name := range []string{"<b>Q&A</b>.txt", "a<b.txt", "  spaced.txt  "} {
		f := e.upload(t, u.ID, nil, name, "x")
		assert.Equal(t, strings.TrimSpace(name), f.OriginalName)
	}

	// 含路径分隔符的名称直接拒绝，不做截断
	for _, name := range []string{"AC/DC.mp3", `dir\a.txt`} {
		_, err := service.NewFileService(e.ctx).Upload(e.ctx, u.ID, nil, []types.UploadItem{item(name, "x")})
		assert.ErrorIs(t, err, errs.ErrValidation, name)
	}
}

func TestListHealsOrphans(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	events := e.subscribe(t, queue.TopicFileOrphaned)

	a := e.upload(t, u.ID, nil, "a.txt", "aaaa")
	b := e.upload(t, u.ID, nil, "b.txt", "bb")
	e.removeBytes(t, a)

	resp, err := service.NewFileService(e.ctx).List(e.ctx, u.ID, types.ListFilesQuery{})
	require.NoError(t, err)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, b.ID, resp.Files[0].ID)

	rec, ok := e.fileRecord(t, a.ID)
	require.True(t, ok)
	assert.True(t, rec.IsDeleted)
	assert.Equal(t, int64(2), e.used(t, u.ID))
	e.requireConsistent(t, u.ID)

	env, err := queue.ParseWatermillMessage[queue.FileOrphanedPayload](receive(t, events))
	require.NoError(t, err)
	assert.Equal(t, a.ID, env.Payload.File.FileID)
	assert.Equal(t, "list", env.Payload.Source)

	// 第二次列表不会重复扣减
	_, err = service.NewFileService(e.ctx).List(e.ctx, u.ID, types.ListFilesQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.used(t, u.ID))
}

func TestOpenMissingBytesHeals(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)

	a := e.upload(t, u.ID, nil, "a.txt", "aaaa")
	e.removeBytes(t, a)

	_, err := service.NewFileService(e.ctx).Open(e.ctx, u.ID, a.ID, model.ActionPreview)
	require.ErrorIs(t, err, errs.ErrNotFound)
	assert.Zero(t, e.used(t, u.ID))
	e.requireConsistent(t, u.ID)
}

func TestListFoldersAndFilters(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	svc := service.NewFileService(e.ctx)

	docs := e.folder(t, u.ID, "docs", nil)
	e.folder(t, u.ID, "art", nil)
	e.upload(t, u.ID, nil, "root.txt", "r")
	e.upload(t, u.ID, &docs.ID, "inner.txt", "i")

	img := item("pic.png", "png")
	img.MimeType = "image/png"
	_, err := svc.Upload(e.ctx, u.ID, nil, []types.UploadItem{img})
	require.NoError(t, err)

	root, err := svc.List(e.ctx, u.ID, types.ListFilesQuery{})
	require.NoError(t, err)
	assert.Len(t, root.Files, 2)
	require.Len(t, root.Folders, 2)
	assert.Equal(t, "art", root.Folders[0].Name)

	inner, err := svc.List(e.ctx, u.ID, types.ListFilesQuery{FolderID: docs.ID})
	require.NoError(t, err)
	require.Len(t, inner.Files, 1)
	assert.Equal(t, "inner.txt", inner.Files[0].OriginalName)

	images, err := svc.List(e.ctx, u.ID, types.ListFilesQuery{Type: "image"})
	require.NoError(t, err)
	require.Len(t, images.Files, 1)
	assert.Empty(t, images.Folders)

	recent, err := svc.List(e.ctx, u.ID, types.ListFilesQuery{Recent: true, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, recent.Files, 2)
	assert.Empty(t, recent.Folders)
}

func TestRenameMoveAndMeta(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	svc := service.NewFileService(e.ctx)

	f := e.upload(t, u.ID, nil, "a.txt", "a")
	dst := e.folder(t, u.ID, "dst", nil)

	renamed, err := svc.Rename(e.ctx, u.ID, f.ID, "  b.txt ")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", renamed.OriginalName)

	_, err = svc.Rename(e.ctx, u.ID, f.ID, "a/b")
	assert.ErrorIs(t, err, errs.ErrValidation)

	moved, err := svc.Move(e.ctx, u.ID, f.ID, &dst.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.FolderID)
	assert.Equal(t, dst.ID, *moved.FolderID)

	_, err = svc.Move(e.ctx, u.ID, f.ID, ptr("nope"))
	assert.ErrorIs(t, err, errs.ErrNotFound)

	moved, err = svc.Move(e.ctx, u.ID, f.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, moved.FolderID)

	meta, err := svc.UpdateMeta(e.ctx, u.ID, f.ID, types.UpdateMetaRequest{
		Description: ptr("  quarterly <i>report</i> "),
		Tags:        []string{"work", " work ", "", "2024"},
	})
	require.NoError(t, err)
	assert.Equal(t, "quarterly report", meta.Description)
	assert.Equal(t, []string{"work", "2024"}, meta.Tags)

	rec, _ := e.fileRecord(t, f.ID)
	assert.Equal(t, []string{"work", "2024"}, rec.Tags)
}

func TestToggleFavorite(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	svc := service.NewFileService(e.ctx)
	f := e.upload(t, u.ID, nil, "a.txt", "a")

	on, err := svc.ToggleFavorite(e.ctx, u.ID, f.ID)
	require.NoError(t, err)
	assert.True(t, on)

	favs, err := service.NewQueryService(e.ctx).Favorites(e.ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, favs, 1)

	off, err := svc.ToggleFavorite(e.ctx, u.ID, f.ID)
	require.NoError(t, err)
	assert.False(t, off)
}

func TestTrashIsNotRepeatable(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	svc := service.NewFileService(e.ctx)
	f := e.upload(t, u.ID, nil, "a.txt", "abc")

	require.NoError(t, svc.Trash(e.ctx, u.ID, f.ID))
	assert.Zero(t, e.used(t, u.ID))

	assert.ErrorIs(t, svc.Trash(e.ctx, u.ID, f.ID), errs.ErrNotFound)
	assert.Zero(t, e.used(t, u.ID))
	e.requireConsistent(t, u.ID)
}

func TestOtherUsersFilesAreInvisible(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, 1<<20)
	other := e.user(t, 1<<20)
	f := e.upload(t, owner.ID, nil, "a.txt", "abc")

	svc := service.NewFileService(e.ctx)

	_, err := svc.Get(e.ctx, other.ID, f.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, svc.Trash(e.ctx, other.ID, f.ID), errs.ErrNotFound)
	assert.Equal(t, int64(3), e.used(t, owner.ID))
}
