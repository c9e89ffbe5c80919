package blob

import (
	"context"
	"fmt"
	"io"

	minio "github.com/minio/minio-go/v7"

	"github.com/yeisme/cloudbox/pkg/configs"
	s3c "github.com/yeisme/cloudbox/pkg/internal/storage/s3"
)

// MinioStore 通过 minio-go 访问 S3 兼容存储.
type MinioStore struct {
	cli    *s3c.Client
	prefix string
}

// NewMinioStore 包装已有客户端.
func NewMinioStore(cli *s3c.Client, prefix string) *MinioStore {
	return &MinioStore{cli: cli, prefix: prefix}
}

func (s *MinioStore) object(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	return s.prefix + key, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}

	_, err = s.cli.PutObject(ctx, s.cli.Bucket, obj, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", obj, err)
	}

	return nil
}

// Open 返回的 *minio.Object 支持 Seek.
// minio 的 GetObject 是惰性的，先 Stat 以区分不存在.
func (s *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.object(key)
	if err != nil {
		return nil, err
	}

	o, err := s.cli.GetObject(ctx, s.cli.Bucket, obj, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(obj, err)
	}

	if _, err := o.Stat(); err != nil {
		o.Close()
		return nil, s.mapErr(obj, err)
	}

	return o, nil
}

func (s *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	obj, err := s.object(key)
	if err != nil {
		return false, err
	}

	_, err = s.cli.StatObject(ctx, s.cli.Bucket, obj, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	if isMinioNotFound(err) {
		return false, nil
	}

	return false, err
}

// Delete RemoveObject 对不存在的对象本身返回成功.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}

	if err := s.cli.RemoveObject(ctx, s.cli.Bucket, obj, minio.RemoveObjectOptions{}); err != nil && !isMinioNotFound(err) {
		return fmt.Errorf("remove object %s: %w", obj, err)
	}

	return nil
}

func (s *MinioStore) Ping(ctx context.Context) error { return s.cli.HealthCheck(ctx) }

func (s *MinioStore) Type() configs.BlobType { return configs.BlobTypeMinio }

func (s *MinioStore) Close() error { return nil }

func (s *MinioStore) mapErr(obj string, err error) error {
	if isMinioNotFound(err) {
		return fmt.Errorf("%s: %w", obj, ErrNotFound)
	}

	return err
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}

func init() {
	Register(configs.BlobTypeMinio, func(ctx context.Context, cfg *configs.AppConfig) (Store, error) {
		cli, err := s3c.New(ctx, &cfg.S3)
		if err != nil {
			return nil, err
		}

		return NewMinioStore(cli, cfg.S3.Prefix), nil
	})
}
