// Package service 实现文件生命周期、配额记账、分享与查询等业务.
//
// 服务按请求从 context 中的存储管理器构造:
//
//	svc := service.NewFileService(c.Request.Context())
//	resp, err := svc.List(ctx, userID, query)
//
// 所有对外错误均为 *errs.Error，调用方按 Code 分支.
package service

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"github.com/yeisme/cloudbox/pkg/cache"
	"github.com/yeisme/cloudbox/pkg/configs"
	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/storage/blob"
	nlog "github.com/yeisme/cloudbox/pkg/log"
	"github.com/yeisme/cloudbox/pkg/queue"
	"github.com/yeisme/cloudbox/pkg/rule"
)

// base 各服务共享的依赖.
type base struct {
	db     *gorm.DB
	blob   blob.Store
	shares *cache.Cache
	events *queue.Emitter
	cfg    *configs.AppConfig
	acct   *Accountant
}

func fromContext(ctx context.Context) *base {
	b := &base{cfg: configs.GetConfig()}

	mgr := ctxPkg.GetManager(ctx)
	if mgr == nil {
		nlog.Ctx(ctx).Warn().Msg("storage manager not found in context")

		b.acct = &Accountant{}

		return b
	}

	if mgr.DB != nil {
		b.db = mgr.DB.DB
	}

	if mgr.Config != nil {
		b.cfg = mgr.Config
	}

	b.blob = mgr.Blob
	b.shares = mgr.ShareCache
	b.events = mgr.Events
	b.acct = &Accountant{db: b.db}

	return b
}

// errNotReady 存储管理器未注入.
var errNotReady = errors.New("storage not initialized")

func (b *base) ready() error {
	if b.db == nil {
		return errNotReady
	}

	return nil
}

func now() time.Time { return time.Now().UTC() }

// strict 去除所有 HTML 的净化策略，bluemonday.Policy 可并发使用.
var strict = bluemonday.StrictPolicy()

// cleanText 去掉标签并裁剪，实体还原为原字符.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// cleanName 裁剪并校验名称，失败返回 ValidationError.
// 名称按原样保存，输出时由模板转义.
func cleanName(name, field string) (string, error) {
	name = strings.TrimSpace(name)
	if !rule.IsValidObjectName(name) {
		return "", errs.Validation("%s is invalid", field)
	}

	return name, nil
}

// notFoundOr 把 gorm 的记录不存在转换为 NotFound.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound("%s not found", what)
	}

	return err
}

// activeFile 调用方拥有且未删除的文件.
func activeFile(tx *gorm.DB, userID, fileID string) (*model.File, error) {
	var f model.File
	if err := tx.Where("id = ? AND user_id = ? AND is_deleted = ?", fileID, userID, false).
		First(&f).Error; err != nil {
		return nil, notFoundOr(err, "file")
	}

	return &f, nil
}

// trashedFile 调用方拥有且在回收站中的文件.
func trashedFile(tx *gorm.DB, userID, fileID string) (*model.File, error) {
	var f model.File
	if err := tx.Where("id = ? AND user_id = ? AND is_deleted = ?", fileID, userID, true).
		First(&f).Error; err != nil {
		return nil, notFoundOr(err, "file")
	}

	return &f, nil
}

// activeFolder 调用方拥有且未删除的文件夹.
func activeFolder(tx *gorm.DB, userID, folderID string) (*model.Folder, error) {
	var f model.Folder
	if err := tx.Where("id = ? AND user_id = ? AND is_deleted = ?", folderID, userID, false).
		First(&f).Error; err != nil {
		return nil, notFoundOr(err, "folder")
	}

	return &f, nil
}

// trashedFolder 调用方拥有且在回收站中的文件夹.
func trashedFolder(tx *gorm.DB, userID, folderID string) (*model.Folder, error) {
	var f model.Folder
	if err := tx.Where("id = ? AND user_id = ? AND is_deleted = ?", folderID, userID, true).
		First(&f).Error; err != nil {
		return nil, notFoundOr(err, "folder")
	}

	return &f, nil
}

// normalizeID 空字符串视为 nil.
func normalizeID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}

	v := strings.TrimSpace(*id)

	return &v
}

// fileRef 事件中的文件引用.
func fileRef(f *model.File) queue.FileRef {
	return queue.FileRef{
		FileID:   f.ID,
		UserID:   f.UserID,
		Name:     f.OriginalName,
		Size:     f.FileSize,
		MimeType: f.MimeType,
		FolderID: f.FolderID,
	}
}
