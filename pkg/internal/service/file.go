package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"gorm.io/gorm"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/storage/blob"
	"github.com/yeisme/cloudbox/pkg/internal/types"
	nlog "github.com/yeisme/cloudbox/pkg/log"
	"github.com/yeisme/cloudbox/pkg/metrics"
	"github.com/yeisme/cloudbox/pkg/queue"
	"github.com/yeisme/cloudbox/pkg/tracing"
)

const (
	defaultRecentLimit = 10
	maxTags            = 32
	defaultMimeType    = "application/octet-stream"
)

// FileService 文件上传、列表、读取与元数据操作.
type FileService struct{ *base }

func NewFileService(c context.Context) *FileService { return &FileService{fromContext(c)} }

// Upload 上传一批文件.
// 配额按整批大小在写入任何字节之前检查；之后逐个写入，失败的条目跳过，
// 成功的条目在同一事务内创建记录并计入配额.
func (s *FileService) Upload(ctx context.Context, userID string, folderID *string, items []types.UploadItem) (*types.UploadResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "FileService.Upload")
	defer span.End()

	if err := s.ready(); err != nil {
		return nil, err
	}

	if s.blob == nil {
		return nil, errs.Upstream(errNotReady, "byte store unavailable")
	}

	if len(items) == 0 {
		return nil, errs.Validation("no files uploaded")
	}

	if n := s.cfg.Quota.MaxFilesPerUpload; n > 0 && len(items) > n {
		return nil, errs.Validation("too many files: at most %d per upload", n)
	}

	var total int64

	names := make([]string, len(items))

	for i, it := range items {
		if it.Size < 0 {
			return nil, errs.Validation("invalid size for %q", it.Name)
		}

		if limit := s.cfg.Quota.MaxFileSize; limit > 0 && it.Size > limit {
			return nil, errs.Validation("file %q is too large: limit is %d bytes", it.Name, limit)
		}

		name, err := cleanName(it.Name, "file name")
		if err != nil {
			return nil, err
		}

		names[i] = name
		total += it.Size
	}

	folderID = normalizeID(folderID)
	if folderID != nil {
		if _, err := activeFolder(s.db.WithContext(ctx), userID, *folderID); err != nil {
			return nil, err
		}
	}

	if u, err := s.acct.Admit(ctx, userID, total); err != nil {
		if errs.CodeOf(err) == errs.CodeQuotaExceeded && u != nil {
			s.events.Emit(ctx, queue.TopicQuotaExceeded, queue.QuotaExceededPayload{
				UserID: userID, Used: u.StorageUsed, Limit: u.StorageLimit, Requested: total,
			})
		}

		return nil, err
	}

	resp := &types.UploadResponse{Files: make([]model.File, 0, len(items))}

	for i, it := range items {
		f, err := s.store(ctx, userID, folderID, names[i], it)
		if err != nil {
			nlog.Ctx(ctx).Warn().Err(err).Str("user", userID).Str("name", names[i]).Msg("upload item failed")
			resp.Failed = append(resp.Failed, types.UploadFailure{Name: names[i], Error: errs.MessageOf(err)})

			continue
		}

		resp.Files = append(resp.Files, *f)
		resp.Bytes += f.FileSize
	}

	if len(resp.Files) == 0 {
		return resp, errs.Upstream(nil, "all %d uploads failed", len(items))
	}

	metrics.FilesUploaded.Add(float64(len(resp.Files)))

	refs := make([]queue.FileRef, 0, len(resp.Files))
	for i := range resp.Files {
		f := &resp.Files[i]
		refs = append(refs, fileRef(f))
		s.record(ctx, userID, &f.ID, model.ActionUpload, map[string]any{"name": f.OriginalName, "size": f.FileSize})
	}

	s.events.Emit(ctx, queue.TopicFileUploaded, queue.FileUploadedPayload{UserID: userID, Files: refs, Bytes: resp.Bytes})

	resp.Message = fmt.Sprintf("%d file(s) uploaded", len(resp.Files))

	return resp, nil
}

// store 写入单个文件的字节并提交记录.
func (s *FileService) store(ctx context.Context, userID string, folderID *string, name string, it types.UploadItem) (*model.File, error) {
	key := blob.NewKey(userID, name)

	mime := strings.TrimSpace(it.MimeType)
	if mime == "" {
		mime = defaultMimeType
	}

	rc, err := it.Open()
	if err != nil {
		return nil, errs.Upstream(err, "failed to read upload")
	}

	err = s.blob.Put(ctx, key, rc, it.Size, mime)
	_ = rc.Close()

	if err != nil {
		return nil, errs.Upstream(err, "failed to store file")
	}

	f := &model.File{
		UserID:       userID,
		FolderID:     folderID,
		Filename:     path.Base(key),
		OriginalName: name,
		Location:     key,
		FileSize:     it.Size,
		MimeType:     mime,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(f).Error; err != nil {
			return fmt.Errorf("create file record: %w", err)
		}

		return s.acct.Apply(tx, userID, f.FileSize, reasonUpload)
	})
	if err != nil {
		s.releaseBytes(ctx, key)
		return nil, err
	}

	return f, nil
}

// kindFilter 按大类过滤.
func kindFilter(q *gorm.DB, kind string) *gorm.DB {
	switch model.Kind(kind) {
	case model.KindImage, model.KindVideo, model.KindAudio:
		return q.Where("mime_type LIKE ?", kind+"/%")
	case model.KindDocument:
		return q.Where("mime_type IN ?", model.DocumentMimeTypes())
	default:
		return q
	}
}

// List 列出文件夹内容或最近上传的文件，字节缺失的记录会被自愈并剔除.
func (s *FileService) List(ctx context.Context, userID string, q types.ListFilesQuery) (*types.ListFilesResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "FileService.List")
	defer span.End()

	if err := s.ready(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	resp := &types.ListFilesResponse{Files: []model.File{}, Folders: []model.Folder{}}

	fq := kindFilter(db.Where("user_id = ? AND is_deleted = ?", userID, false), q.Type)

	if q.Recent {
		limit := q.Limit
		if limit <= 0 {
			limit = defaultRecentLimit
		}

		if err := fq.Order("created_at DESC").Limit(limit).Find(&resp.Files).Error; err != nil {
			return nil, err
		}

		resp.Files = s.reconcile(ctx, resp.Files, orphanSourceList)

		return resp, nil
	}

	folderID := normalizeID(&q.FolderID)
	if folderID == nil {
		fq = fq.Where("folder_id IS NULL")
	} else {
		fq = fq.Where("folder_id = ?", *folderID)
	}

	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	if err := fq.Order("created_at DESC").Find(&resp.Files).Error; err != nil {
		return nil, err
	}

	resp.Files = s.reconcile(ctx, resp.Files, orphanSourceList)

	if q.Type != "" {
		return resp, nil
	}

	dq := db.Where("user_id = ? AND is_deleted = ?", userID, false)
	if folderID == nil {
		dq = dq.Where("parent_id IS NULL")
	} else {
		dq = dq.Where("parent_id = ?", *folderID)
	}

	if err := dq.Order("name ASC").Find(&resp.Folders).Error; err != nil {
		return nil, err
	}

	return resp, nil
}

// Get 返回调用方拥有的未删除文件.
func (s *FileService) Get(ctx context.Context, userID, fileID string) (*model.File, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	return activeFile(s.db.WithContext(ctx), userID, fileID)
}

// Open 打开文件内容用于下载或预览，action 写入活动日志.
func (s *FileService) Open(ctx context.Context, userID, fileID string, action model.Action) (*types.FileContent, error) {
	ctx, span := tracing.StartSpan(ctx, "FileService.Open")
	defer span.End()

	f, err := s.Get(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	rc, err := s.openBytes(ctx, f, orphanSourceDownload)
	if err != nil {
		return nil, err
	}

	s.record(ctx, userID, &f.ID, action, map[string]any{"name": f.OriginalName})

	return &types.FileContent{Name: f.OriginalName, MimeType: f.MimeType, Size: f.FileSize, Body: rc}, nil
}

// Rename 修改用户可见的文件名，存储名不变.
func (s *FileService) Rename(ctx context.Context, userID, fileID, newName string) (*model.File, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	name, err := cleanName(newName, "new name")
	if err != nil {
		return nil, err
	}

	f, err := activeFile(s.db.WithContext(ctx), userID, fileID)
	if err != nil {
		return nil, err
	}

	old := f.OriginalName

	if err := s.db.WithContext(ctx).Model(f).Update("original_name", name).Error; err != nil {
		return nil, err
	}

	f.OriginalName = name

	s.record(ctx, userID, &f.ID, model.ActionRename, map[string]any{"from": old, "to": name})
	s.events.Emit(ctx, queue.TopicFileRenamed, queue.FileRenamedPayload{File: fileRef(f), OldName: old})

	return f, nil
}

// Move 把文件移动到目标文件夹，nil 表示根目录.
func (s *FileService) Move(ctx context.Context, userID, fileID string, folderID *string) (*model.File, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	f, err := activeFile(db, userID, fileID)
	if err != nil {
		return nil, err
	}

	folderID = normalizeID(folderID)
	if folderID != nil {
		if _, err := activeFolder(db, userID, *folderID); err != nil {
			return nil, err
		}
	}

	from := f.FolderID

	if err := db.Model(f).Update("folder_id", folderID).Error; err != nil {
		return nil, err
	}

	f.FolderID = folderID

	s.record(ctx, userID, &f.ID, model.ActionMove, nil)
	s.events.Emit(ctx, queue.TopicFileMoved, queue.FileMovedPayload{File: fileRef(f), From: from, To: folderID})

	return f, nil
}

// UpdateMeta 更新描述与标签，nil 字段保持不变.
func (s *FileService) UpdateMeta(ctx context.Context, userID, fileID string, req types.UpdateMetaRequest) (*model.File, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	f, err := activeFile(db, userID, fileID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if req.Description != nil {
		f.Description = cleanText(*req.Description)
		updates["description"] = f.Description
	}

	if req.Tags != nil {
		f.Tags = cleanTags(req.Tags)
		updates["tags"] = f.Tags
	}

	if len(updates) == 0 {
		return f, nil
	}

	// map 更新不会经过 serializer，tags 需单独按字段写入
	if tags, ok := updates["tags"]; ok {
		delete(updates, "tags")

		if err := db.Model(f).Select("tags").Updates(&model.File{Tags: tags.([]string)}).Error; err != nil {
			return nil, err
		}
	}

	if len(updates) > 0 {
		if err := db.Model(f).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return f, nil
}

// cleanTags 净化、去重并丢弃空标签.
func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))

	for _, t := range in {
		t = cleanText(t)
		if t == "" {
			continue
		}

		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		out = append(out, t)

		if len(out) == maxTags {
			break
		}
	}

	return out
}

// ToggleFavorite 切换收藏状态并返回新值.
func (s *FileService) ToggleFavorite(ctx context.Context, userID, fileID string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}

	db := s.db.WithContext(ctx)

	f, err := activeFile(db, userID, fileID)
	if err != nil {
		return false, err
	}

	next := !f.IsFavorite
	if err := db.Model(f).Update("is_favorite", next).Error; err != nil {
		return false, err
	}

	return next, nil
}

// Trash 把文件移入回收站并扣减配额.
// lifecycle.release_bytes_on_trash 打开时随后尽力删除字节，失败不影响结果.
func (s *FileService) Trash(ctx context.Context, userID, fileID string) error {
	ctx, span := tracing.StartSpan(ctx, "FileService.Trash")
	defer span.End()

	if err := s.ready(); err != nil {
		return err
	}

	f, err := activeFile(s.db.WithContext(ctx), userID, fileID)
	if err != nil {
		return err
	}

	ok, err := s.transition(ctx, f, true, reasonTrash, nil)
	if err != nil {
		return err
	}

	if !ok {
		return errs.NotFound("file not found")
	}

	if s.cfg.Lifecycle.ReleaseBytesOnTrash {
		s.releaseBytes(ctx, f.Location, f.ThumbnailLocation)
	}

	s.record(ctx, userID, &f.ID, model.ActionDelete, map[string]any{"name": f.OriginalName})
	s.events.Emit(ctx, queue.TopicFileTrashed, queue.FileChangedPayload{File: fileRef(f), Released: f.FileSize})

	return nil
}
