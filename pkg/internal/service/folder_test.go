package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/queue"
)

func folderByID(t *testing.T, e *env, id string) model.Folder {
	t.Helper()

	var f model.Folder
	require.NoError(t, e.mgr.DB.Where("id = ?", id).First(&f).Error)

	return f
}

func TestCreateFolderPaths(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	svc := service.NewFolderService(e.ctx)

	root := e.folder(t, u.ID, "photos", nil)
	assert.Equal(t, "photos", root.Path)

	child := e.folder(t, u.ID, "2024", &root.ID)
	assert.Equal(t, "photos/2024", child.Path)

	_, err := svc.Create(e.ctx, u.ID, "", nil)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Create(e.ctx, u.ID, "x", ptr("missing"))
	assert.ErrorIs(t, err, errs.ErrNotFound)

	other := e.user(t, 1<<20)
	_, err = svc.Create(e.ctx, other.ID, "x", &root.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	all, err := svc.ListAll(e.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2024", all[0].Name)
}

func TestRenameFolderRecomputesDescendants(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)

	a := e.folder(t, u.ID, "a", nil)
	b := e.folder(t, u.ID, "b", &a.ID)
	c := e.folder(t, u.ID, "c", &b.ID)

	renamed, err := service.NewFolderService(e.ctx).Rename(e.ctx, u.ID, a.ID, "z")
	require.NoError(t, err)
	assert.Equal(t, "z", renamed.Path)

	assert.Equal(t, "z/b", folderByID(t, e, b.ID).Path)
	assert.Equal(t, "z/b/c", folderByID(t, e, c.ID).Path)
}

func TestMoveFolderRejectsCycles(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	svc := service.NewFolderService(e.ctx)

	a := e.folder(t, u.ID, "a", nil)
	b := e.folder(t, u.ID, "b", &a.ID)
	c := e.folder(t, u.ID, "c", &b.ID)
	d := e.folder(t, u.ID, "d", nil)

	_, err := svc.Move(e.ctx, u.ID, a.ID, &c.ID)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Move(e.ctx, u.ID, a.ID, &a.ID)
	assert.ErrorIs(t, err, errs.ErrValidation)

	moved, err := svc.Move(e.ctx, u.ID, b.ID, &d.ID)
	require.NoError(t, err)
	assert.Equal(t, "d/b", moved.Path)
	assert.Equal(t, "d/b/c", folderByID(t, e, c.ID).Path)

	moved, err = svc.Move(e.ctx, u.ID, b.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", moved.Path)
	assert.Nil(t, moved.ParentID)
	assert.Equal(t, "b/c", folderByID(t, e, c.ID).Path)
}

// 文件夹 X 下有 A(10 字节)，子文件夹 Y 下有 B(5 字节).
func TestFolderCascadeWithMissingBytes(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	svc := service.NewFolderService(e.ctx)
	events := e.subscribe(t, queue.TopicFolderRestored)

	x := e.folder(t, u.ID, "X", nil)
	y := e.folder(t, u.ID, "Y", &x.ID)
	a := e.upload(t, u.ID, &x.ID, "A.bin", "0123456789")
	b := e.upload(t, u.ID, &y.ID, "B.bin", "01234")
	require.Equal(t, int64(15), e.used(t, u.ID))

	trashed, err := svc.TrashFolder(e.ctx, u.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, trashed.DeletedFiles)
	assert.Equal(t, 2, trashed.DeletedFolders)
	assert.Equal(t, int64(15), trashed.FreedSpace)
	assert.Zero(t, e.used(t, u.ID))

	e.removeBytes(t, b)

	restored, err := svc.RestoreFolder(e.ctx, u.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.RestoredFiles)
	assert.Equal(t, 1, restored.MissingFiles)
	assert.Equal(t, 2, restored.RestoredFolders)
	assert.Equal(t, int64(10), restored.RestoredSpace)
	assert.Equal(t, int64(10), e.used(t, u.ID))
	e.requireConsistent(t, u.ID)

	recA, ok := e.fileRecord(t, a.ID)
	require.True(t, ok)
	assert.False(t, recA.IsDeleted)

	_, ok = e.fileRecord(t, b.ID)
	assert.False(t, ok)

	assert.False(t, folderByID(t, e, y.ID).IsDeleted)

	env, err := queue.ParseWatermillMessage[queue.FolderCascadePayload](receive(t, events))
	require.NoError(t, err)
	assert.Equal(t, 1, env.Payload.MissingFiles)
}

func TestTrashFolderSkipsAlreadyTrashedFiles(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)

	x := e.folder(t, u.ID, "X", nil)
	a := e.upload(t, u.ID, &x.ID, "a", "aaa")
	e.upload(t, u.ID, &x.ID, "b", "bb")

	require.NoError(t, service.NewFileService(e.ctx).Trash(e.ctx, u.ID, a.ID))
	assert.Equal(t, int64(2), e.used(t, u.ID))

	res, err := service.NewFolderService(e.ctx).TrashFolder(e.ctx, u.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedFiles)
	assert.Equal(t, int64(2), res.FreedSpace)
	assert.Zero(t, e.used(t, u.ID))
	e.requireConsistent(t, u.ID)

	_, err = service.NewFolderService(e.ctx).TrashFolder(e.ctx, u.ID, x.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRestoreFolderRehomesWhenParentTrashed(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	svc := service.NewFolderService(e.ctx)

	p := e.folder(t, u.ID, "p", nil)
	c := e.folder(t, u.ID, "c", &p.ID)
	g := e.folder(t, u.ID, "g", &c.ID)

	_, err := svc.TrashFolder(e.ctx, u.ID, p.ID)
	require.NoError(t, err)

	res, err := svc.RestoreFolder(e.ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RestoredFolders)

	rc := folderByID(t, e, c.ID)
	assert.Nil(t, rc.ParentID)
	assert.Equal(t, "c", rc.Path)
	assert.Equal(t, "c/g", folderByID(t, e, g.ID).Path)
	assert.True(t, folderByID(t, e, p.ID).IsDeleted)
}

func TestPurgeFolder(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	svc := service.NewFolderService(e.ctx)

	x := e.folder(t, u.ID, "X", nil)
	y := e.folder(t, u.ID, "Y", &x.ID)
	a := e.upload(t, u.ID, &x.ID, "a", "aaa")
	b := e.upload(t, u.ID, &y.ID, "b", "bb")

	_, err := svc.PurgeFolder(e.ctx, u.ID, x.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.TrashFolder(e.ctx, u.ID, x.ID)
	require.NoError(t, err)

	res, err := svc.PurgeFolder(e.ctx, u.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PurgedFiles)
	assert.Equal(t, 2, res.PurgedFolders)

	for _, f := range []*model.File{a, b} {
		_, ok := e.fileRecord(t, f.ID)
		assert.False(t, ok)
	}

	var n int64
	require.NoError(t, e.mgr.DB.Model(&model.Folder{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.Zero(t, n)
	assert.Zero(t, e.used(t, u.ID))
}

func TestCascadeDepthLimit(t *testing.T) {
	e := newEnv(t, func(c *configs.AppConfig) { c.Lifecycle.MaxFolderDepth = 2 })
	u := e.user(t, 1<<20)

	a := e.folder(t, u.ID, "a", nil)
	b := e.folder(t, u.ID, "b", &a.ID)
	c := e.folder(t, u.ID, "c", &b.ID)
	d := e.folder(t, u.ID, "d", &c.ID)
	f := e.upload(t, u.ID, &d.ID, "deep.txt", "x")

	_, err := service.NewFolderService(e.ctx).TrashFolder(e.ctx, u.ID, a.ID)
	require.ErrorIs(t, err, errs.ErrValidation)

	// 超限时不做任何修改
	rec, _ := e.fileRecord(t, f.ID)
	assert.False(t, rec.IsDeleted)
	assert.False(t, folderByID(t, e, a.ID).IsDeleted)
	assert.Equal(t, int64(1), e.used(t, u.ID))
}
