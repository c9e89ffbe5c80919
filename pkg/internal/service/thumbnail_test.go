package service_test

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/storage/blob"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

// fakeGenerator 把固定内容写入目标文件.
type fakeGenerator struct {
	calls atomic.Int32
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, src, dst string) error {
	g.calls.Add(1)

	if g.err != nil {
		return g.err
	}

	if _, err := os.Stat(src); err != nil {
		return err
	}

	return os.WriteFile(dst, []byte("JPEG"), 0o600)
}

func uploadTyped(t *testing.T, e *env, userID, name, mime, content string) string {
	t.Helper()

	it := item(name, content)
	it.MimeType = mime

	resp, err := service.NewFileService(e.ctx).Upload(e.ctx, userID, nil, []types.UploadItem{it})
	require.NoError(t, err)

	return resp.Files[0].ID
}

func readAll(t *testing.T, c *types.FileContent) string {
	t.Helper()

	defer c.Body.Close()

	data, err := io.ReadAll(c.Body)
	require.NoError(t, err)

	return string(data)
}

func TestVideoThumbnailGeneratedOnce(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	id := uploadTyped(t, e, u.ID, "clip.mp4", "video/mp4", "not really a video")

	gen := &fakeGenerator{}
	svc := service.NewThumbnailService(e.ctx).WithGenerator(gen)

	c, err := svc.ForUser(e.ctx, u.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", c.MimeType)
	assert.Equal(t, "JPEG", readAll(t, c))

	rec, _ := e.fileRecord(t, id)
	assert.Equal(t, blob.ThumbnailKey(id), rec.ThumbnailLocation)

	// 第二次直接读取已保存的缩略图
	c, err = service.NewThumbnailService(e.ctx).WithGenerator(gen).ForUser(e.ctx, u.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "JPEG", readAll(t, c))
	assert.Equal(t, int32(1), gen.calls.Load())

	// 缩略图不计入配额
	assert.Equal(t, int64(len("not really a video")), e.used(t, u.ID))
}

func TestImageThumbnailIsOriginal(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	id := uploadTyped(t, e, u.ID, "a.png", "image/png", "PNGDATA")

	c, err := service.NewThumbnailService(e.ctx).WithGenerator(&fakeGenerator{}).ForUser(e.ctx, u.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "image/png", c.MimeType)
	assert.Equal(t, "PNGDATA", readAll(t, c))
}

func TestThumbnailErrors(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	doc := uploadTyped(t, e, u.ID, "a.txt", "text/plain", "x")
	vid := uploadTyped(t, e, u.ID, "b.mp4", "video/mp4", "y")

	_, err := service.NewThumbnailService(e.ctx).ForUser(e.ctx, u.ID, doc)
	assert.ErrorIs(t, err, errs.ErrValidation)

	gen := &fakeGenerator{err: errors.New("exit status 1")}

	_, err = service.NewThumbnailService(e.ctx).WithGenerator(gen).ForUser(e.ctx, u.ID, vid)
	assert.ErrorIs(t, err, errs.ErrUpstream)

	rec, _ := e.fileRecord(t, vid)
	assert.Empty(t, rec.ThumbnailLocation)
}

func TestSharedThumbnail(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	id := uploadTyped(t, e, u.ID, "a.png", "image/png", "PNGDATA")

	resp, err := service.NewShareService(e.ctx).Create(e.ctx, u.ID, id, nil, "http://box")
	require.NoError(t, err)

	c, err := service.NewThumbnailService(e.ctx).ForShare(e.ctx, resp.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", readAll(t, c))

	_, err = service.NewThumbnailService(e.ctx).ForShare(e.ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
