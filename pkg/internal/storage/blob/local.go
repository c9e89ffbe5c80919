package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yeisme/cloudbox/pkg/configs"
)

// LocalStore 以目录树保存字节.
type LocalStore struct {
	root     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

// NewLocalStore 创建本地存储，根目录不存在时创建.
func NewLocalStore(cfg configs.LocalStorageConfig) (*LocalStore, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	dirPerm := os.FileMode(cfg.DirPerm)
	if dirPerm == 0 {
		dirPerm = 0o755
	}

	filePerm := os.FileMode(cfg.FilePerm)
	if filePerm == 0 {
		filePerm = 0o644
	}

	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &LocalStore{root: root, dirPerm: dirPerm, filePerm: filePerm}, nil
}

// LocalPath 返回键对应的本地文件路径，供外部工具直接读取.
func (s *LocalStore) LocalPath(key string) (string, error) { return s.path(key) }

func (s *LocalStore) path(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put 先写临时文件再原子重命名.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), s.dirPerm); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("write blob %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close blob %s: %w", key, err)
	}

	if err := os.Chmod(tmp.Name(), s.filePerm); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit blob %s: %w", key, err)
	}

	return nil
}

// Open 返回 *os.File，支持 Seek.
func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}

	return f, err
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return info.Mode().IsRegular(), nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}

	return nil
}

func (s *LocalStore) Ping(context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

func (s *LocalStore) Type() configs.BlobType { return configs.BlobTypeLocal }

func (s *LocalStore) Close() error { return nil }

// Root 存储根目录.
func (s *LocalStore) Root() string { return s.root }

func init() {
	Register(configs.BlobTypeLocal, func(_ context.Context, cfg *configs.AppConfig) (Store, error) {
		return NewLocalStore(cfg.Storage.Local)
	})
}
