package blob_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/storage/blob"
)

func newLocal(t *testing.T) *blob.LocalStore {
	t.Helper()

	s, err := blob.NewLocalStore(configs.LocalStorageConfig{Root: t.TempDir()})
	require.NoError(t, err)

	return s
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	key := blob.NewKey("u1", "Report.PDF")
	assert.True(t, strings.HasPrefix(key, "u1/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.NotContains(t, blob.NewKey("u1", "odd.t<x"), "<")

	require.NoError(t, s.Put(ctx, key, strings.NewReader("hello"), 5, "application/pdf"))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(b))

	_, isSeeker := rc.(io.Seeker)
	assert.True(t, isSeeker)

	require.NoError(t, s.Delete(ctx, key))

	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStoreMissing(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	_, err := s.Open(ctx, "u1/nope.txt")
	assert.ErrorIs(t, err, blob.ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "u1/nope.txt"))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	for _, key := range []string{"", "/abs", "../up", "a/../../b", "a//b", `a\b`} {
		err := s.Put(ctx, key, strings.NewReader("x"), 1, "")
		assert.Error(t, err, key)
	}
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "thumbnails/abc_thumb.jpg", blob.ThumbnailKey("abc"))
}

func TestRegisteredTypes(t *testing.T) {
	assert.Equal(t,
		[]configs.BlobType{configs.BlobTypeLocal, configs.BlobTypeMinio, configs.BlobTypeS3},
		blob.RegisteredTypes())
}
