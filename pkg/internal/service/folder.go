package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/cloudbox/pkg/configs"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/types"
	"github.com/yeisme/cloudbox/pkg/metrics"
	"github.com/yeisme/cloudbox/pkg/queue"
	"github.com/yeisme/cloudbox/pkg/tracing"
)

// FolderService 文件夹树的创建、改名、移动与级联生命周期.
type FolderService struct{ *base }

func NewFolderService(c context.Context) *FolderService { return &FolderService{fromContext(c)} }

func (s *FolderService) maxDepth() int {
	if d := s.cfg.Lifecycle.MaxFolderDepth; d > 0 {
		return d
	}

	return configs.DefaultMaxFolderDepth
}

// Create 创建文件夹，parentID 为 nil 时在根目录.
func (s *FolderService) Create(ctx context.Context, userID, name string, parentID *string) (*model.Folder, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	name, err := cleanName(name, "folder name")
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var parent *model.Folder

	if parentID = normalizeID(parentID); parentID != nil {
		if parent, err = activeFolder(db, userID, *parentID); err != nil {
			return nil, err
		}
	}

	f := &model.Folder{
		UserID:   userID,
		ParentID: parentID,
		Name:     name,
		Path:     model.ChildPath(parent, name),
	}

	if err := db.Create(f).Error; err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}

	s.record(ctx, userID, nil, model.ActionCreateFolder, map[string]any{"folderId": f.ID, "path": f.Path})

	return f, nil
}

// ListAll 所有未删除的文件夹，按名称排序.
func (s *FolderService) ListAll(ctx context.Context, userID string) ([]model.Folder, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	folders := []model.Folder{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("name ASC").Find(&folders).Error; err != nil {
		return nil, err
	}

	return folders, nil
}

// collect 从 root 出发按层收集子孙文件夹，不含 root.
// deleted 非 nil 时只沿该状态的文件夹下降；超过最大深度时在任何修改之前返回 ValidationError.
func (s *FolderService) collect(tx *gorm.DB, root *model.Folder, deleted *bool) ([]model.Folder, error) {
	limit := s.maxDepth()
	visited := map[string]struct{}{root.ID: {}}
	frontier := []string{root.ID}

	var out []model.Folder

	for depth := 1; len(frontier) > 0; depth++ {
		q := tx.Where("user_id = ? AND parent_id IN ?", root.UserID, frontier)
		if deleted != nil {
			q = q.Where("is_deleted = ?", *deleted)
		}

		var children []model.Folder
		if err := q.Order("name ASC").Find(&children).Error; err != nil {
			return nil, err
		}

		if len(children) > 0 && depth > limit {
			return nil, errs.Validation("folder tree is deeper than %d levels", limit)
		}

		next := make([]string, 0, len(children))

		for _, c := range children {
			if _, seen := visited[c.ID]; seen {
				continue
			}

			visited[c.ID] = struct{}{}
			out = append(out, c)
			next = append(next, c.ID)
		}

		frontier = next
	}

	return out, nil
}

// filesIn 文件夹集合中的文件.
func filesIn(tx *gorm.DB, userID string, folderIDs []string, deleted *bool) ([]model.File, error) {
	var files []model.File
	if len(folderIDs) == 0 {
		return files, nil
	}

	q := tx.Where("user_id = ? AND folder_id IN ?", userID, folderIDs)
	if deleted != nil {
		q = q.Where("is_deleted = ?", *deleted)
	}

	if err := q.Order("created_at ASC").Find(&files).Error; err != nil {
		return nil, err
	}

	return files, nil
}

func folderIDs(root *model.Folder, rest []model.Folder) []string {
	ids := make([]string, 0, len(rest)+1)
	ids = append(ids, root.ID)

	for i := range rest {
		ids = append(ids, rest[i].ID)
	}

	return ids
}

// repath 依据父子关系重算 root 子树中所有文件夹的路径.
func (s *FolderService) repath(tx *gorm.DB, root *model.Folder) error {
	desc, err := s.collect(tx, root, nil)
	if err != nil {
		return err
	}

	paths := map[string]string{root.ID: root.Path}

	for i := range desc {
		d := &desc[i]

		parentPath, ok := paths[*d.ParentID]
		if !ok {
			continue
		}

		p := parentPath + "/" + d.Name
		paths[d.ID] = p

		if p == d.Path {
			continue
		}

		if err := tx.Model(&model.Folder{}).Where("id = ?", d.ID).Update("path", p).Error; err != nil {
			return fmt.Errorf("update folder path: %w", err)
		}
	}

	return nil
}

// Rename 改名并在同一事务内重算所有子孙路径.
func (s *FolderService) Rename(ctx context.Context, userID, folderID, newName string) (*model.Folder, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	name, err := cleanName(newName, "new name")
	if err != nil {
		return nil, err
	}

	var folder *model.Folder

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := activeFolder(tx, userID, folderID)
		if err != nil {
			return err
		}

		var parent *model.Folder
		if f.ParentID != nil {
			var p model.Folder
			if err := tx.Where("id = ? AND user_id = ?", *f.ParentID, userID).First(&p).Error; err == nil {
				parent = &p
			}
		}

		f.Name = name
		f.Path = model.ChildPath(parent, name)

		if err := tx.Model(f).Updates(map[string]any{"name": f.Name, "path": f.Path}).Error; err != nil {
			return fmt.Errorf("rename folder: %w", err)
		}

		folder = f

		return s.repath(tx, f)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, userID, nil, model.ActionRename, map[string]any{"folderId": folder.ID, "to": folder.Name})

	return folder, nil
}

// Move 移动文件夹到新的父文件夹，nil 表示根.
// 目标不能是自身或其子孙，且必须属于同一用户.
func (s *FolderService) Move(ctx context.Context, userID, folderID string, parentID *string) (*model.Folder, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	parentID = normalizeID(parentID)

	var folder *model.Folder

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := activeFolder(tx, userID, folderID)
		if err != nil {
			return err
		}

		var parent *model.Folder

		if parentID != nil {
			if *parentID == f.ID {
				return errs.Validation("cannot move a folder into itself")
			}

			if parent, err = activeFolder(tx, userID, *parentID); err != nil {
				return err
			}

			if err := s.checkNotDescendant(tx, f, parent); err != nil {
				return err
			}
		}

		f.ParentID = parentID
		f.Path = model.ChildPath(parent, f.Name)

		if err := tx.Model(f).Updates(map[string]any{"parent_id": f.ParentID, "path": f.Path}).Error; err != nil {
			return fmt.Errorf("move folder: %w", err)
		}

		folder = f

		return s.repath(tx, f)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, userID, nil, model.ActionMove, map[string]any{"folderId": folder.ID, "path": folder.Path})

	return folder, nil
}

// checkNotDescendant 沿 target 的祖先链向上，遇到 f 说明会形成环.
func (s *FolderService) checkNotDescendant(tx *gorm.DB, f, target *model.Folder) error {
	cur := target

	for range s.maxDepth() + 1 {
		if cur.ID == f.ID {
			return errs.Validation("cannot move a folder into its own descendant")
		}

		if cur.ParentID == nil {
			return nil
		}

		var p model.Folder
		if err := tx.Where("id = ? AND user_id = ?", *cur.ParentID, f.UserID).First(&p).Error; err != nil {
			return notFoundOr(err, "folder")
		}

		cur = &p
	}

	return errs.Validation("folder tree is deeper than %d levels", s.maxDepth())
}

// TrashFolder 把文件夹及其子孙移入回收站，每个文件的大小从配额中扣减.
// 级联不是整体事务：每个文件的翻转与增量在各自的事务中完成.
func (s *FolderService) TrashFolder(ctx context.Context, userID, folderID string) (*types.TrashFolderResult, error) {
	ctx, span := tracing.StartSpan(ctx, "FolderService.TrashFolder")
	defer span.End()

	if err := s.ready(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	active := false

	root, err := activeFolder(db, userID, folderID)
	if err != nil {
		return nil, err
	}

	desc, err := s.collect(db, root, &active)
	if err != nil {
		return nil, err
	}

	ids := folderIDs(root, desc)

	files, err := filesIn(db, userID, ids, &active)
	if err != nil {
		return nil, err
	}

	res := &types.TrashFolderResult{}

	for i := range files {
		f := &files[i]

		ok, err := s.transition(ctx, f, true, reasonTrash, nil)
		if err != nil {
			return res, err
		}

		if !ok {
			continue
		}

		res.DeletedFiles++
		res.FreedSpace += f.FileSize

		if s.cfg.Lifecycle.ReleaseBytesOnTrash {
			s.releaseBytes(ctx, f.Location, f.ThumbnailLocation)
		}
	}

	upd := db.Model(&model.Folder{}).
		Where("id IN ? AND is_deleted = ?", ids, false).
		Updates(map[string]any{"is_deleted": true, "trashed_at": now()})
	if upd.Error != nil {
		return res, upd.Error
	}

	res.DeletedFolders = int(upd.RowsAffected)
	res.Message = fmt.Sprintf("folder moved to trash: %d file(s), %d folder(s)", res.DeletedFiles, res.DeletedFolders)

	metrics.CascadeItems.WithLabelValues("trash", "file").Add(float64(res.DeletedFiles))
	metrics.CascadeItems.WithLabelValues("trash", "folder").Add(float64(res.DeletedFolders))

	s.record(ctx, userID, nil, model.ActionDeleteFolder, map[string]any{"folderId": root.ID, "name": root.Name})
	s.events.Emit(ctx, queue.TopicFolderTrashed, queue.FolderCascadePayload{
		FolderID: root.ID, UserID: userID, Folders: res.DeletedFolders, Files: res.DeletedFiles, Bytes: res.FreedSpace,
	})

	return res, nil
}

// RestoreFolder 恢复文件夹及其在回收站中的子孙.
// 字节缺失的文件被永久删除并计入 MissingFiles，不阻塞其余条目.
// 父文件夹不可用时恢复到根目录.
func (s *FolderService) RestoreFolder(ctx context.Context, userID, folderID string) (*types.RestoreFolderResult, error) {
	ctx, span := tracing.StartSpan(ctx, "FolderService.RestoreFolder")
	defer span.End()

	if err := s.ready(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	trashed := true

	root, err := trashedFolder(db, userID, folderID)
	if err != nil {
		return nil, err
	}

	desc, err := s.collect(db, root, &trashed)
	if err != nil {
		return nil, err
	}

	ids := folderIDs(root, desc)

	files, err := filesIn(db, userID, ids, &trashed)
	if err != nil {
		return nil, err
	}

	if len(files) > 0 && s.blob == nil {
		return nil, errs.Upstream(errNotReady, "byte store unavailable")
	}

	// 先确认全部字节状态，存储不可用时在修改之前失败
	present := make([]bool, len(files))

	for i := range files {
		ok, err := s.blob.Exists(ctx, files[i].Location)
		if err != nil {
			return nil, errs.Upstream(err, "failed to check stored bytes")
		}

		present[i] = ok
	}

	res := &types.RestoreFolderResult{}

	for i := range files {
		f := &files[i]

		if !present[i] {
			ok, err := s.purge(ctx, f)
			if err != nil {
				return res, err
			}

			if ok {
				res.MissingFiles++
			}

			continue
		}

		ok, err := s.transition(ctx, f, false, reasonRestore, nil)
		if err != nil {
			return res, err
		}

		if ok {
			res.RestoredFiles++
			res.RestoredSpace += f.FileSize
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		upd := tx.Model(&model.Folder{}).
			Where("id IN ? AND is_deleted = ?", ids, true).
			Updates(map[string]any{"is_deleted": false, "trashed_at": nil})
		if upd.Error != nil {
			return upd.Error
		}

		res.RestoredFolders = int(upd.RowsAffected)

		if root.ParentID == nil {
			return nil
		}

		if _, err := activeFolder(tx, userID, *root.ParentID); err == nil {
			return nil
		} else if errs.CodeOf(err) != errs.CodeNotFound {
			return err
		}

		root.ParentID = nil
		root.Path = root.Name

		if err := tx.Model(root).Updates(map[string]any{"parent_id": nil, "path": root.Path}).Error; err != nil {
			return err
		}

		return s.repath(tx, root)
	})
	if err != nil {
		return res, err
	}

	res.Message = fmt.Sprintf("folder restored: %d file(s)", res.RestoredFiles)
	if res.MissingFiles > 0 {
		res.Message += fmt.Sprintf(", %d file(s) could not be restored because their bytes are missing", res.MissingFiles)
	}

	metrics.CascadeItems.WithLabelValues("restore", "file").Add(float64(res.RestoredFiles))
	metrics.CascadeItems.WithLabelValues("restore", "folder").Add(float64(res.RestoredFolders))
	metrics.CascadeItems.WithLabelValues("restore", "missing").Add(float64(res.MissingFiles))

	s.record(ctx, userID, nil, model.ActionRestore, map[string]any{"folderId": root.ID, "name": root.Name})
	s.events.Emit(ctx, queue.TopicFolderRestored, queue.FolderCascadePayload{
		FolderID: root.ID, UserID: userID, Folders: res.RestoredFolders, Files: res.RestoredFiles,
		MissingFiles: res.MissingFiles, Bytes: res.RestoredSpace,
	})

	return res, nil
}

// PurgeFolder 永久删除回收站中的文件夹及其全部子孙.
func (s *FolderService) PurgeFolder(ctx context.Context, userID, folderID string) (*types.PurgeFolderResult, error) {
	ctx, span := tracing.StartSpan(ctx, "FolderService.PurgeFolder")
	defer span.End()

	if err := s.ready(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	root, err := trashedFolder(db, userID, folderID)
	if err != nil {
		return nil, err
	}

	desc, err := s.collect(db, root, nil)
	if err != nil {
		return nil, err
	}

	ids := folderIDs(root, desc)

	files, err := filesIn(db, userID, ids, nil)
	if err != nil {
		return nil, err
	}

	res := &types.PurgeFolderResult{}

	for i := range files {
		ok, err := s.purge(ctx, &files[i])
		if err != nil {
			return res, err
		}

		if ok {
			res.PurgedFiles++
		}
	}

	del := db.Where("id IN ? AND user_id = ?", ids, userID).Delete(&model.Folder{})
	if del.Error != nil {
		return res, del.Error
	}

	res.PurgedFolders = int(del.RowsAffected)
	res.Message = fmt.Sprintf("folder permanently deleted: %d file(s), %d folder(s)", res.PurgedFiles, res.PurgedFolders)

	metrics.CascadeItems.WithLabelValues("purge", "file").Add(float64(res.PurgedFiles))
	metrics.CascadeItems.WithLabelValues("purge", "folder").Add(float64(res.PurgedFolders))

	s.record(ctx, userID, nil, model.ActionPurge, map[string]any{"folderId": root.ID, "name": root.Name})
	s.events.Emit(ctx, queue.TopicFolderPurged, queue.FolderCascadePayload{
		FolderID: root.ID, UserID: userID, Folders: res.PurgedFolders, Files: res.PurgedFiles,
	})

	return res, nil
}
