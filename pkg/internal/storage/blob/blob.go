// Package blob 定义文件字节的存放接口及本地、minio、aws s3 三种实现.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yeisme/cloudbox/pkg/configs"
)

// ErrNotFound 字节对象不存在.
var ErrNotFound = errors.New("blob not found")

// Store 文件字节存储.
// Delete 对不存在的 key 返回 nil.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Type() configs.BlobType
	Close() error
}

// Factory 根据配置创建 Store.
type Factory func(ctx context.Context, cfg *configs.AppConfig) (Store, error)

var factories = map[configs.BlobType]Factory{}

// Register 注册存储实现.
func Register(t configs.BlobType, f Factory) {
	factories[t] = f
}

// RegisteredTypes 已注册的存储类型.
func RegisteredTypes() []configs.BlobType {
	out := make([]configs.BlobType, 0, len(factories))
	for t := range factories {
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// New 按 storage.type 创建 Store.
func New(ctx context.Context, cfg *configs.AppConfig) (Store, error) {
	f, ok := factories[cfg.Storage.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported blob store type: %s", cfg.Storage.Type)
	}

	return f(ctx, cfg)
}

// NewKey 为上传文件生成存储 key: <userID>/<uuid><ext>.
func NewKey(userID, originalName string) string {
	ext := strings.ToLower(path.Ext(originalName))
	if len(ext) > 16 || strings.IndexFunc(strings.TrimPrefix(ext, "."), notKeyRune) >= 0 {
		ext = ""
	}

	return userID + "/" + uuid.NewString() + ext
}

// notKeyRune 扩展名只保留小写字母和数字.
func notKeyRune(r rune) bool {
	return (r < 'a' || r > 'z') && (r < '0' || r > '9')
}

// ThumbnailKey 缩略图存储 key.
func ThumbnailKey(fileID string) string {
	return "thumbnails/" + fileID + "_thumb.jpg"
}

// validKey key 必须为相对路径且不能越界.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid blob key %q", key)
	}

	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("invalid blob key %q", key)
		}
	}

	return nil
}
