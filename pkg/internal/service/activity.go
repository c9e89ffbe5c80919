package service

import (
	"context"

	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	nlog "github.com/yeisme/cloudbox/pkg/log"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityService 追加写入与读取用户活动.
type ActivityService struct{ *base }

func NewActivityService(c context.Context) *ActivityService { return &ActivityService{fromContext(c)} }

// record 尽力而为地写入一条活动，失败只记录日志.
func (b *base) record(ctx context.Context, userID string, fileID *string, action model.Action, details map[string]any) {
	if b.db == nil {
		return
	}

	info := ctxPkg.GetClientInfo(ctx)

	entry := &model.ActivityLog{
		UserID:    userID,
		FileID:    fileID,
		Action:    action,
		Details:   details,
		IPAddress: info.IP,
		UserAgent: info.UserAgent,
	}

	if err := b.db.WithContext(ctx).Create(entry).Error; err != nil {
		nlog.Ctx(ctx).Warn().Err(err).
			Str("user", userID).
			Str("action", string(action)).
			Msg("write activity failed")
	}
}

// Record 写入一条活动.
func (s *ActivityService) Record(ctx context.Context, userID string, fileID *string, action model.Action, details map[string]any) {
	s.record(ctx, userID, fileID, action, details)
}

// Recent 用户最近的活动，按时间倒序.
func (s *ActivityService) Recent(ctx context.Context, userID string, limit int) ([]model.ActivityLog, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultActivityLimit
	}

	limit = min(limit, maxActivityLimit)

	var rows []model.ActivityLog
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}
