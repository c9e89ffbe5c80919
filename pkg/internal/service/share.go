package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yeisme/cloudbox/pkg/cache"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/types"
	nlog "github.com/yeisme/cloudbox/pkg/log"
	"github.com/yeisme/cloudbox/pkg/metrics"
	"github.com/yeisme/cloudbox/pkg/queue"
	"github.com/yeisme/cloudbox/pkg/tracing"
)

// 分享解析结果，用作指标标签.
const (
	shareResultOK       = "ok"
	shareResultNotFound = "not_found"
	shareResultExpired  = "expired"
	shareResultGone     = "file_gone"
)

// ShareService 分享链接的签发、撤销与匿名解析.
type ShareService struct{ *base }

func NewShareService(c context.Context) *ShareService { return &ShareService{fromContext(c)} }

// invalidateShares 删除令牌的缓存快照，失败只记录日志.
func (b *base) invalidateShares(ctx context.Context, tokens ...string) {
	for _, t := range tokens {
		if t == "" {
			continue
		}

		if err := b.shares.Delete(ctx, t); err != nil {
			nlog.Ctx(ctx).Warn().Err(err).Msg("invalidate share cache failed")
		}
	}
}

// ShareURL 由外部地址与令牌拼出分享页地址.
func ShareURL(base, token string) string {
	return strings.TrimRight(base, "/") + "/share/" + token
}

// Create 为文件签发新的分享令牌，旧令牌随之失效.
// expiresIn 以天为单位，nil 时取默认值，0 表示立即过期.
func (s *ShareService) Create(ctx context.Context, userID, fileID string, expiresIn *int, baseURL string) (*types.ShareResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "ShareService.Create")
	defer span.End()

	if err := s.ready(); err != nil {
		return nil, err
	}

	days := s.cfg.Share.DefaultExpireDays
	if expiresIn != nil {
		days = *expiresIn
	}

	if days < 0 || days > s.cfg.Share.MaxExpireDays {
		return nil, errs.Validation("expiresIn must be between 0 and %d days", s.cfg.Share.MaxExpireDays)
	}

	token := uuid.NewString()
	expiresAt := now().Add(time.Duration(days) * 24 * time.Hour)

	var (
		f   *model.File
		old []string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if f, err = activeFile(tx, userID, fileID); err != nil {
			return err
		}

		if err := tx.Model(&model.Share{}).
			Where("file_id = ? AND is_active = ?", f.ID, true).
			Pluck("share_token", &old).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.Share{}).
			Where("file_id = ? AND is_active = ?", f.ID, true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate shares: %w", err)
		}

		sh := &model.Share{
			FileID:      f.ID,
			UserID:      userID,
			ShareToken:  token,
			Permissions: model.PermissionRead,
			ExpiresAt:   &expiresAt,
			IsActive:    true,
		}
		if err := tx.Create(sh).Error; err != nil {
			return fmt.Errorf("create share: %w", err)
		}

		return tx.Model(f).Updates(map[string]any{
			"is_shared":     true,
			"share_token":   token,
			"share_expires": expiresAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidateShares(ctx, old...)

	if s.cfg.Server.PublicURL != "" {
		baseURL = s.cfg.Server.PublicURL
	}

	s.record(ctx, userID, &f.ID, model.ActionShare, map[string]any{"name": f.OriginalName, "expiresIn": days})
	s.events.Emit(ctx, queue.TopicShareCreated, queue.SharePayload{
		FileID: f.ID, UserID: userID, Token: token, ExpiresAt: &expiresAt,
	})

	return &types.ShareResponse{
		Message:    "share link created",
		ShareURL:   ShareURL(baseURL, token),
		ShareToken: token,
		ExpiresAt:  expiresAt,
		File:       types.SummaryOf(f),
	}, nil
}

// Revoke 停用文件的全部分享.
func (s *ShareService) Revoke(ctx context.Context, userID, fileID string) error {
	ctx, span := tracing.StartSpan(ctx, "ShareService.Revoke")
	defer span.End()

	if err := s.ready(); err != nil {
		return err
	}

	var (
		f      *model.File
		tokens []string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if f, err = activeFile(tx, userID, fileID); err != nil {
			return err
		}

		if err := tx.Model(&model.Share{}).
			Where("file_id = ? AND is_active = ?", f.ID, true).
			Pluck("share_token", &tokens).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.Share{}).
			Where("file_id = ? AND is_active = ?", f.ID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		return tx.Model(f).Updates(map[string]any{
			"is_shared":     false,
			"share_token":   nil,
			"share_expires": nil,
		}).Error
	})
	if err != nil {
		return err
	}

	s.invalidateShares(ctx, tokens...)

	s.record(ctx, userID, &f.ID, model.ActionUnshare, map[string]any{"name": f.OriginalName})

	for _, t := range tokens {
		s.events.Emit(ctx, queue.TopicShareRevoked, queue.SharePayload{FileID: f.ID, UserID: userID, Token: t})
	}

	return nil
}

// ListShared 分享中的未删除文件，按更新时间倒序.
func (s *ShareService) ListShared(ctx context.Context, userID string) ([]model.File, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	files := []model.File{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_shared = ? AND is_deleted = ?", userID, true, false).
		Order("updated_at DESC").Find(&files).Error; err != nil {
		return nil, err
	}

	return s.reconcile(ctx, files, orphanSourceList), nil
}

// snapshot 读取令牌对应的活跃分享，结果缓存到过期为止.
func (s *ShareService) snapshot(ctx context.Context, token string) (types.ShareSnapshot, error) {
	ttl := func(snap types.ShareSnapshot) time.Duration {
		d := s.cfg.Share.CacheTTL
		if snap.ExpiresAt != nil {
			if left := time.Until(*snap.ExpiresAt); left < d {
				d = left
			}
		}

		return d
	}

	return cache.GetOrSet(ctx, s.shares, token, ttl, func(ctx context.Context) (types.ShareSnapshot, error) {
		var sh model.Share
		if err := s.db.WithContext(ctx).
			Where("share_token = ? AND is_active = ?", token, true).
			First(&sh).Error; err != nil {
			return types.ShareSnapshot{}, notFoundOr(err, "share")
		}

		return types.ShareSnapshot{
			ShareID:   sh.ID,
			FileID:    sh.FileID,
			UserID:    sh.UserID,
			ExpiresAt: sh.ExpiresAt,
		}, nil
	})
}

// Resolve 解析匿名令牌并计入一次访问，供只需元数据的访问使用.
func (s *ShareService) Resolve(ctx context.Context, token string) (*model.File, *types.ShareSnapshot, error) {
	f, snap, err := s.check(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	if err := s.count(ctx, token, f, snap); err != nil {
		return nil, nil, err
	}

	return f, snap, nil
}

// check 依次检查令牌、过期、文件状态，不修改任何记录.
func (s *ShareService) check(ctx context.Context, token string) (*model.File, *types.ShareSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "ShareService.Resolve")
	defer span.End()

	if err := s.ready(); err != nil {
		return nil, nil, err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		metrics.ShareResolutions.WithLabelValues(shareResultNotFound).Inc()
		return nil, nil, errs.NotFound("share not found")
	}

	snap, err := s.snapshot(ctx, token)
	if err != nil {
		if errs.CodeOf(err) == errs.CodeNotFound {
			metrics.ShareResolutions.WithLabelValues(shareResultNotFound).Inc()
		}

		return nil, nil, err
	}

	if snap.Expired(now()) {
		metrics.ShareResolutions.WithLabelValues(shareResultExpired).Inc()
		return nil, nil, errs.ShareExpired("share link has expired")
	}

	f, err := activeFile(s.db.WithContext(ctx), snap.UserID, snap.FileID)
	if err != nil {
		metrics.ShareResolutions.WithLabelValues(shareResultGone).Inc()
		return nil, nil, err
	}

	return f, &snap, nil
}

// count 访问成功后访问次数加一；快照对应的分享已失效时返回 NotFound.
func (s *ShareService) count(ctx context.Context, token string, f *model.File, snap *types.ShareSnapshot) error {
	res := s.db.WithContext(ctx).Model(&model.Share{}).
		Where("id = ? AND is_active = ?", snap.ShareID, true).
		UpdateColumn("access_count", gorm.Expr("access_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("count share access: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		// 缓存中的快照已被撤销
		s.invalidateShares(ctx, strings.TrimSpace(token))
		metrics.ShareResolutions.WithLabelValues(shareResultNotFound).Inc()

		return errs.NotFound("share not found")
	}

	metrics.ShareResolutions.WithLabelValues(shareResultOK).Inc()
	s.events.Emit(ctx, queue.TopicShareAccessed, queue.SharePayload{
		FileID: f.ID, UserID: f.UserID, Token: strings.TrimSpace(token), ExpiresAt: snap.ExpiresAt,
	})

	return nil
}

// openCounted 先检查令牌，open 成功后才计入访问.
func (s *ShareService) openCounted(ctx context.Context, token string,
	open func(*model.File) (*types.FileContent, error),
) (*types.FileContent, error) {
	f, snap, err := s.check(ctx, token)
	if err != nil {
		return nil, err
	}

	c, err := open(f)
	if err != nil {
		return nil, err
	}

	if err := s.count(ctx, token, f, snap); err != nil {
		c.Body.Close()
		return nil, err
	}

	return c, nil
}

// View 分享页展示的信息.
func (s *ShareService) View(ctx context.Context, token string) (*types.SharedFileView, error) {
	f, snap, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	view := &types.SharedFileView{Token: token, File: types.SummaryOf(f), ExpiresAt: snap.ExpiresAt}

	var owner model.User
	if err := db.Select("name").Where("id = ?", f.UserID).First(&owner).Error; err == nil {
		view.SharedBy = owner.Name
	}

	var sh model.Share
	if err := db.Select("access_count").Where("id = ?", snap.ShareID).First(&sh).Error; err == nil {
		view.AccessCount = sh.AccessCount
	}

	return view, nil
}

// OpenShared 通过令牌读取文件字节，字节缺失时不计入访问.
func (s *ShareService) OpenShared(ctx context.Context, token string) (*types.FileContent, error) {
	return s.openCounted(ctx, token, func(f *model.File) (*types.FileContent, error) {
		rc, err := s.openBytes(ctx, f, orphanSourceShare)
		if err != nil {
			return nil, err
		}

		return &types.FileContent{Name: f.OriginalName, MimeType: f.MimeType, Size: f.FileSize, Body: rc}, nil
	})
}
