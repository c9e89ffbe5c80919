package service

import (
	"context"
	"time"

	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/types"
	nlog "github.com/yeisme/cloudbox/pkg/log"
	"github.com/yeisme/cloudbox/pkg/tracing"
)

// sweepPageSize 孤儿巡检每页记录数.
const sweepPageSize = 500

// MaintenanceService 定时维护：回收站保留期、孤儿巡检与用量核对.
type MaintenanceService struct{ *base }

func NewMaintenanceService(c context.Context) *MaintenanceService {
	return &MaintenanceService{fromContext(c)}
}

// PurgeExpiredTrash 永久删除超过保留天数的回收站内容.
func (s *MaintenanceService) PurgeExpiredTrash(ctx context.Context) (*types.RetentionResult, error) {
	days := s.cfg.Jobs.TrashRetentionDays
	if days <= 0 {
		days = 30
	}

	before := now().Add(-time.Duration(days) * 24 * time.Hour)

	res, err := (&TrashService{s.base}).AutoClean(ctx, before)
	if err != nil {
		return res, err
	}

	nlog.Ctx(ctx).Info().
		Int("files", res.PurgedFiles).
		Int("folders", res.PurgedFolders).
		Time("before", before).
		Msg("trash retention finished")

	return res, nil
}

// SweepOrphans 按主键分页检查所有未删除文件的字节.
func (s *MaintenanceService) SweepOrphans(ctx context.Context) (*types.SweepResult, error) {
	ctx, span := tracing.StartSpan(ctx, "MaintenanceService.SweepOrphans")
	defer span.End()

	if err := s.ready(); err != nil {
		return nil, err
	}

	res := &types.SweepResult{}
	db := s.db.WithContext(ctx)
	last := ""

	for {
		var page []model.File
		if err := db.Where("is_deleted = ? AND id > ?", false, last).
			Order("id ASC").Limit(sweepPageSize).Find(&page).Error; err != nil {
			return res, err
		}

		if len(page) == 0 {
			break
		}

		last = page[len(page)-1].ID
		n := len(page)
		res.Checked += n
		res.Healed += n - len(s.verify(ctx, page, orphanSourceSweep))

		if n < sweepPageSize {
			break
		}

		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	nlog.Ctx(ctx).Info().Int("checked", res.Checked).Int("healed", res.Healed).Msg("orphan sweep finished")

	return res, nil
}

// UsageDrift 核对所有用户的用量，jobs.auto_repair_usage 为 true 时修正.
func (s *MaintenanceService) UsageDrift(ctx context.Context) (types.RepairUsageResponse, error) {
	if err := s.ready(); err != nil {
		return types.RepairUsageResponse{}, err
	}

	out, err := s.acct.RepairAll(ctx, s.cfg.Jobs.AutoRepairUsage)
	if err != nil {
		return out, err
	}

	for _, r := range out.Reports {
		if r.Drift != 0 && !r.Repaired {
			nlog.Ctx(ctx).Warn().
				Str("user", r.UserID).
				Int64("recorded", r.Recorded).
				Int64("actual", r.Actual).
				Msg("storage usage drift detected")
		}
	}

	return out, nil
}

// RepairUsage 管理员手动核对，userID 为空时处理所有用户.
func (s *MaintenanceService) RepairUsage(ctx context.Context, req types.RepairUsageRequest) (types.RepairUsageResponse, error) {
	if err := s.ready(); err != nil {
		return types.RepairUsageResponse{}, err
	}

	if req.UserID == "" {
		return s.acct.RepairAll(ctx, !req.DryRun)
	}

	r, err := s.acct.Repair(ctx, req.UserID, !req.DryRun)
	if err != nil {
		return types.RepairUsageResponse{}, err
	}

	out := types.RepairUsageResponse{Reports: []types.UsageReport{r}}
	if r.Drift != 0 {
		out.Drifted = 1
	}

	if r.Repaired {
		out.Repaired = 1
	}

	return out, nil
}
