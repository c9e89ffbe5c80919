package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/storage/blob"
	"github.com/yeisme/cloudbox/pkg/internal/types"
	nlog "github.com/yeisme/cloudbox/pkg/log"
	"github.com/yeisme/cloudbox/pkg/tracing"
)

const thumbnailMime = "image/jpeg"

// Generator 从视频 src 截取一帧写入 dst.
type Generator interface {
	Generate(ctx context.Context, src, dst string) error
}

// FFmpeg 调用外部 ffmpeg 生成缩略图.
type FFmpeg struct {
	Path    string
	Seek    string
	Width   int
	Height  int
	Timeout time.Duration
}

// NewFFmpeg 从配置构造.
func NewFFmpeg(cfg configs.ThumbnailConfig) *FFmpeg {
	return &FFmpeg{Path: cfg.FFmpegPath, Seek: cfg.Seek, Width: cfg.Width, Height: cfg.Height, Timeout: cfg.Timeout}
}

func (g *FFmpeg) Generate(ctx context.Context, src, dst string) error {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)

		defer cancel()
	}

	scale := "scale=" + strconv.Itoa(g.Width) + ":" + strconv.Itoa(g.Height)

	cmd := exec.CommandContext(ctx, g.Path, "-y", "-ss", g.Seek, "-i", src, "-vframes", "1", "-vf", scale, dst)

	out, err := cmd.CombinedOutput()
	if err != nil {
		if len(out) > 512 {
			out = out[len(out)-512:]
		}

		return fmt.Errorf("ffmpeg: %w: %s", err, out)
	}

	return nil
}

// 同一文件的并发生成合并为一次.
var thumbGroup singleflight.Group

// ThumbnailService 图片原样返回，视频按需生成并缓存缩略图.
type ThumbnailService struct {
	*base
	gen Generator
}

func NewThumbnailService(c context.Context) *ThumbnailService {
	b := fromContext(c)

	return &ThumbnailService{base: b, gen: NewFFmpeg(b.cfg.Thumbnail)}
}

// WithGenerator 替换生成器.
func (s *ThumbnailService) WithGenerator(g Generator) *ThumbnailService {
	s.gen = g
	return s
}

// ForUser 调用方自己的文件的缩略图.
func (s *ThumbnailService) ForUser(ctx context.Context, userID, fileID string) (*types.FileContent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	f, err := activeFile(s.db.WithContext(ctx), userID, fileID)
	if err != nil {
		return nil, err
	}

	return s.Render(ctx, f, orphanSourceDownload)
}

// ForShare 通过分享令牌获取缩略图，生成成功后才计入访问次数.
func (s *ThumbnailService) ForShare(ctx context.Context, token string) (*types.FileContent, error) {
	return (&ShareService{s.base}).openCounted(ctx, token, func(f *model.File) (*types.FileContent, error) {
		return s.Render(ctx, f, orphanSourceShare)
	})
}

// Render 按文件类型返回缩略图内容.
func (s *ThumbnailService) Render(ctx context.Context, f *model.File, source string) (*types.FileContent, error) {
	ctx, span := tracing.StartSpan(ctx, "ThumbnailService.Render")
	defer span.End()

	switch f.Kind() {
	case model.KindImage:
		rc, err := s.openBytes(ctx, f, source)
		if err != nil {
			return nil, err
		}

		return &types.FileContent{Name: f.OriginalName, MimeType: f.MimeType, Size: f.FileSize, Body: rc}, nil
	case model.KindVideo:
		return s.video(ctx, f, source)
	default:
		return nil, errs.Validation("thumbnails are only available for images and videos")
	}
}

func (s *ThumbnailService) video(ctx context.Context, f *model.File, source string) (*types.FileContent, error) {
	if s.blob == nil {
		return nil, errs.Upstream(errNotReady, "byte store unavailable")
	}

	name := f.ID + "_thumb.jpg"

	if f.ThumbnailLocation != "" {
		rc, err := s.blob.Open(ctx, f.ThumbnailLocation)
		if err == nil {
			return &types.FileContent{Name: name, MimeType: thumbnailMime, Size: -1, Body: rc}, nil
		}

		if !errors.Is(err, blob.ErrNotFound) {
			return nil, errs.Upstream(err, "failed to read thumbnail")
		}
	}

	if !s.cfg.Thumbnail.Enabled || s.gen == nil {
		return nil, errs.Validation("video thumbnails are disabled")
	}

	v, err, _ := thumbGroup.Do(f.ID, func() (any, error) {
		return s.generate(ctx, f, source)
	})
	if err != nil {
		return nil, err
	}

	data := v.([]byte)

	return &types.FileContent{
		Name:     name,
		MimeType: thumbnailMime,
		Size:     int64(len(data)),
		Body:     io.NopCloser(bytes.NewReader(data)),
	}, nil
}

// generate 生成、保存缩略图并回写位置.
func (s *ThumbnailService) generate(ctx context.Context, f *model.File, source string) ([]byte, error) {
	workDir, err := os.MkdirTemp(s.cfg.Thumbnail.TempDir, "cloudbox-thumb-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	src, err := s.materialize(ctx, f, source, workDir)
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(workDir, "thumb.jpg")
	if err := s.gen.Generate(ctx, src, dst); err != nil {
		nlog.Ctx(ctx).Error().Err(err).Str("file", f.ID).Msg("thumbnail generation failed")
		return nil, errs.Upstream(err, "failed to generate thumbnail")
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		return nil, errs.Upstream(err, "failed to generate thumbnail")
	}

	key := blob.ThumbnailKey(f.ID)
	if err := s.blob.Put(ctx, key, bytes.NewReader(data), int64(len(data)), thumbnailMime); err != nil {
		// 仍然返回本次生成的结果
		nlog.Ctx(ctx).Warn().Err(err).Str("file", f.ID).Msg("store thumbnail failed")
		return data, nil
	}

	if err := s.db.WithContext(ctx).Model(&model.File{}).Where("id = ?", f.ID).
		UpdateColumn("thumbnail_location", key).Error; err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("file", f.ID).Msg("save thumbnail location failed")
	}

	f.ThumbnailLocation = key

	return data, nil
}

// materialize 返回源视频的本地路径，非本地存储时复制到临时文件.
func (s *ThumbnailService) materialize(ctx context.Context, f *model.File, source, dir string) (string, error) {
	if local, ok := s.blob.(*blob.LocalStore); ok {
		p, err := local.LocalPath(f.Location)
		if err != nil {
			return "", errs.Upstream(err, "invalid storage location")
		}

		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				s.healOrphan(ctx, f, source)
				return "", errs.NotFound("file not found")
			}

			return "", errs.Upstream(err, "failed to read file")
		}

		return p, nil
	}

	rc, err := s.openBytes(ctx, f, source)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	p := filepath.Join(dir, "src"+filepath.Ext(f.OriginalName))

	out, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return "", errs.Upstream(err, "failed to read file")
	}

	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return p, nil
}
