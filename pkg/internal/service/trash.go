package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/types"
	nlog "github.com/yeisme/cloudbox/pkg/log"
	"github.com/yeisme/cloudbox/pkg/queue"
	"github.com/yeisme/cloudbox/pkg/tracing"
)

// TrashService 回收站：列表、恢复、永久删除与清理.
type TrashService struct{ *base }

func NewTrashService(c context.Context) *TrashService { return &TrashService{fromContext(c)} }

// List 回收站中的文件与文件夹，按更新时间倒序.
func (t *TrashService) List(ctx context.Context, userID string) (*types.TrashListResponse, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}

	db := t.db.WithContext(ctx)
	resp := &types.TrashListResponse{Files: []model.File{}, Folders: []model.Folder{}}

	if err := db.Where("user_id = ? AND is_deleted = ?", userID, true).
		Order("updated_at DESC").Find(&resp.Files).Error; err != nil {
		return nil, err
	}

	if err := db.Where("user_id = ? AND is_deleted = ?", userID, true).
		Order("updated_at DESC").Find(&resp.Folders).Error; err != nil {
		return nil, err
	}

	return resp, nil
}

// Restore 恢复单个文件.
// 字节已不存在时返回 SourceMissing 且记录留在回收站；所在文件夹不可用时恢复到根目录.
func (t *TrashService) Restore(ctx context.Context, userID, fileID string) (*model.File, error) {
	ctx, span := tracing.StartSpan(ctx, "TrashService.Restore")
	defer span.End()

	if err := t.ready(); err != nil {
		return nil, err
	}

	db := t.db.WithContext(ctx)

	f, err := trashedFile(db, userID, fileID)
	if err != nil {
		return nil, err
	}

	if t.blob == nil {
		return nil, errs.Upstream(errNotReady, "byte store unavailable")
	}

	exists, err := t.blob.Exists(ctx, f.Location)
	if err != nil {
		return nil, errs.Upstream(err, "failed to check stored bytes")
	}

	if !exists {
		return nil, errs.SourceMissing("cannot restore: source file is missing")
	}

	var extra map[string]any

	if f.FolderID != nil {
		if _, err := activeFolder(db, userID, *f.FolderID); err != nil {
			if errs.CodeOf(err) != errs.CodeNotFound {
				return nil, err
			}

			extra = map[string]any{"folder_id": nil}
		}
	}

	ok, err := t.transition(ctx, f, false, reasonRestore, extra)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, errs.NotFound("file not found")
	}

	if extra != nil {
		f.FolderID = nil
	}

	t.record(ctx, userID, &f.ID, model.ActionRestore, map[string]any{"name": f.OriginalName})
	t.events.Emit(ctx, queue.TopicFileRestored, queue.FileChangedPayload{File: fileRef(f)})

	return f, nil
}

// Purge 永久删除回收站中的文件，不再调整配额.
func (t *TrashService) Purge(ctx context.Context, userID, fileID string) error {
	ctx, span := tracing.StartSpan(ctx, "TrashService.Purge")
	defer span.End()

	if err := t.ready(); err != nil {
		return err
	}

	f, err := trashedFile(t.db.WithContext(ctx), userID, fileID)
	if err != nil {
		return err
	}

	ok, err := t.purge(ctx, f)
	if err != nil {
		return err
	}

	if !ok {
		return errs.NotFound("file not found")
	}

	t.record(ctx, userID, nil, model.ActionPurge, map[string]any{"fileId": f.ID, "name": f.OriginalName})
	t.events.Emit(ctx, queue.TopicFilePurged, queue.FileChangedPayload{File: fileRef(f)})

	return nil
}

// Empty 永久删除用户回收站中的全部文件与文件夹.
func (t *TrashService) Empty(ctx context.Context, userID string) (*types.EmptyTrashResult, error) {
	ctx, span := tracing.StartSpan(ctx, "TrashService.Empty")
	defer span.End()

	if err := t.ready(); err != nil {
		return nil, err
	}

	db := t.db.WithContext(ctx)

	var files []model.File
	if err := db.Where("user_id = ? AND is_deleted = ?", userID, true).Find(&files).Error; err != nil {
		return nil, err
	}

	res := &types.EmptyTrashResult{}

	for i := range files {
		ok, err := t.purge(ctx, &files[i])
		if err != nil {
			return res, err
		}

		if ok {
			res.PurgedFiles++

			t.events.Emit(ctx, queue.TopicFilePurged, queue.FileChangedPayload{File: fileRef(&files[i])})
		}
	}

	del := db.Where("user_id = ? AND is_deleted = ?", userID, true).Delete(&model.Folder{})
	if del.Error != nil {
		return res, del.Error
	}

	res.PurgedFolders = int(del.RowsAffected)
	res.Message = fmt.Sprintf("trash emptied: %d file(s), %d folder(s)", res.PurgedFiles, res.PurgedFolders)

	t.record(ctx, userID, nil, model.ActionPurge, map[string]any{"files": res.PurgedFiles, "folders": res.PurgedFolders})

	return res, nil
}

// AutoClean 永久删除所有用户中移入回收站早于 before 的文件与文件夹.
func (t *TrashService) AutoClean(ctx context.Context, before time.Time) (*types.RetentionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "TrashService.AutoClean")
	defer span.End()

	if err := t.ready(); err != nil {
		return nil, err
	}

	if before.IsZero() {
		return nil, errs.Validation("before is required")
	}

	db := t.db.WithContext(ctx)
	before = before.UTC()

	var files []model.File
	if err := db.Where("is_deleted = ? AND trashed_at < ?", true, before).Find(&files).Error; err != nil {
		return nil, err
	}

	res := &types.RetentionResult{}

	for i := range files {
		ok, err := t.purge(ctx, &files[i])
		if err != nil {
			nlog.Ctx(ctx).Error().Err(err).Str("file", files[i].ID).Msg("retention purge failed")
			continue
		}

		if ok {
			res.PurgedFiles++

			t.events.Emit(ctx, queue.TopicFilePurged, queue.FileChangedPayload{File: fileRef(&files[i])})
		}
	}

	del := db.Where("is_deleted = ? AND trashed_at < ?", true, before).Delete(&model.Folder{})
	if del.Error != nil {
		return res, del.Error
	}

	res.PurgedFolders = int(del.RowsAffected)

	return res, nil
}
