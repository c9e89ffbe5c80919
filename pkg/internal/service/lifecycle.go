package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/storage/blob"
	nlog "github.com/yeisme/cloudbox/pkg/log"
	"github.com/yeisme/cloudbox/pkg/metrics"
	"github.com/yeisme/cloudbox/pkg/queue"
)

// existsConcurrency 列表自愈时并发检查字节的上限.
const existsConcurrency = 8

// 孤儿自愈来源.
const (
	orphanSourceList     = "list"
	orphanSourceDownload = "download"
	orphanSourceShare    = "share"
	orphanSourceSweep    = "sweep"
)

// flip 在事务内条件翻转删除标记并应用对应的配额增量.
// 记录已被并发操作翻转时返回 false，且不应用增量.
func (b *base) flip(tx *gorm.DB, f *model.File, deleted bool, reason string, extra map[string]any) (bool, error) {
	updates := map[string]any{"is_deleted": deleted}

	delta := f.FileSize
	if deleted {
		t := now()
		updates["trashed_at"] = &t
		delta = -f.FileSize
	} else {
		updates["trashed_at"] = nil
	}

	for k, v := range extra {
		updates[k] = v
	}

	res := tx.Model(&model.File{}).
		Where("id = ? AND is_deleted = ?", f.ID, !deleted).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update file state: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := b.acct.Apply(tx, f.UserID, delta, reason); err != nil {
		return false, err
	}

	f.IsDeleted = deleted

	return true, nil
}

// transition 在独立事务中执行 flip.
func (b *base) transition(ctx context.Context, f *model.File, deleted bool, reason string, extra map[string]any) (bool, error) {
	var ok bool

	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ok, err = b.flip(tx, f, deleted, reason, extra)

		return err
	})

	return ok, err
}

// releaseBytes 尽力而为地删除物理字节，失败只记录日志与指标.
func (b *base) releaseBytes(ctx context.Context, keys ...string) {
	if b.blob == nil {
		return
	}

	for _, key := range keys {
		if key == "" {
			continue
		}

		if err := b.blob.Delete(ctx, key); err != nil {
			metrics.BlobDeleteFailures.Inc()
			nlog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("delete stored bytes failed")
		}
	}
}

// purge 永久删除记录并停用其分享，之后尽力删除字节.
// 记录若仍处于未删除状态会先扣减配额，保证不变量.
func (b *base) purge(ctx context.Context, f *model.File) (bool, error) {
	var (
		ok     bool
		tokens []string
	)

	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !f.IsDeleted {
			if _, err := b.flip(tx, f, true, reasonTrash, nil); err != nil {
				return err
			}
		}

		res := tx.Where("id = ? AND is_deleted = ?", f.ID, true).Delete(&model.File{})
		if res.Error != nil {
			return fmt.Errorf("delete file record: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			return nil
		}

		ok = true

		if err := tx.Model(&model.Share{}).
			Where("file_id = ? AND is_active = ?", f.ID, true).
			Pluck("share_token", &tokens).Error; err != nil {
			return err
		}

		return tx.Model(&model.Share{}).
			Where("file_id = ? AND is_active = ?", f.ID, true).
			Update("is_active", false).Error
	})
	if err != nil || !ok {
		return ok, err
	}

	b.releaseBytes(ctx, f.Location, f.ThumbnailLocation)
	b.invalidateShares(ctx, tokens...)

	return true, nil
}

// healOrphan 字节缺失时强制移入回收站并扣减配额.
// 失败只记录日志，调用方总是把该记录从结果中剔除.
func (b *base) healOrphan(ctx context.Context, f *model.File, source string) {
	ok, err := b.transition(ctx, f, true, reasonOrphan, nil)
	if err != nil {
		nlog.Ctx(ctx).Error().Err(err).Str("file", f.ID).Str("source", source).Msg("orphan heal failed")
		return
	}

	if !ok {
		return
	}

	metrics.OrphansHealed.WithLabelValues(source).Inc()
	nlog.Ctx(ctx).Warn().
		Str("file", f.ID).
		Str("user", f.UserID).
		Str("location", f.Location).
		Int64("size", f.FileSize).
		Str("source", source).
		Msg("stored bytes missing, file moved to trash")

	b.events.Emit(ctx, queue.TopicFileOrphaned, queue.FileOrphanedPayload{File: fileRef(f), Source: source})
}

// reconcile 列表读取时的孤儿自愈，受 lifecycle.verify_blobs_on_list 控制.
func (b *base) reconcile(ctx context.Context, files []model.File, source string) []model.File {
	if !b.cfg.Lifecycle.VerifyBlobsOnList {
		return files
	}

	return b.verify(ctx, files, source)
}

// verify 检查每条记录的字节，缺失的自愈并从结果中剔除.
// 无法确认存在性的记录保留在结果中.
func (b *base) verify(ctx context.Context, files []model.File, source string) []model.File {
	if len(files) == 0 || b.blob == nil {
		return files
	}

	missing := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(existsConcurrency)

	for i := range files {
		g.Go(func() error {
			ok, err := b.blob.Exists(gctx, files[i].Location)
			if err != nil {
				nlog.Ctx(ctx).Warn().Err(err).Str("file", files[i].ID).Msg("check stored bytes failed")
				return nil
			}

			missing[i] = !ok

			return nil
		})
	}

	_ = g.Wait()

	out := files[:0]

	for i := range files {
		if !missing[i] {
			out = append(out, files[i])
			continue
		}

		b.healOrphan(ctx, &files[i], source)
	}

	return out
}

// openBytes 打开文件字节，缺失时自愈并返回 NotFound.
func (b *base) openBytes(ctx context.Context, f *model.File, source string) (io.ReadCloser, error) {
	if b.blob == nil {
		return nil, errs.Upstream(errNotReady, "byte store unavailable")
	}

	rc, err := b.blob.Open(ctx, f.Location)
	if errors.Is(err, blob.ErrNotFound) {
		if !f.IsDeleted {
			b.healOrphan(ctx, f, source)
		}

		return nil, errs.NotFound("file not found")
	}

	if err != nil {
		return nil, errs.Upstream(err, "failed to read file")
	}

	return rc, nil
}
