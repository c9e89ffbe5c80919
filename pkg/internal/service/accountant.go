package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/types"
	nlog "github.com/yeisme/cloudbox/pkg/log"
	"github.com/yeisme/cloudbox/pkg/metrics"
)

// 增量原因，用作指标标签.
const (
	reasonUpload  = "upload"
	reasonTrash   = "trash"
	reasonRestore = "restore"
	reasonOrphan  = "orphan"
	reasonRepair  = "repair"
)

// Accountant 维护 storageUsed 等于未删除文件大小之和.
// 热路径只做原子增减，重新求和只出现在 Repair 中.
type Accountant struct {
	db *gorm.DB
}

// NewAccountant 从 context 构造.
func NewAccountant(ctx context.Context) *Accountant { return fromContext(ctx).acct }

// Apply 在给定事务中原子地把 delta 加到用户的 storageUsed 上.
func (a *Accountant) Apply(tx *gorm.DB, userID string, delta int64, reason string) error {
	if delta == 0 {
		return nil
	}

	res := tx.Model(&model.User{}).Where("id = ?", userID).
		UpdateColumn("storage_used", gorm.Expr("storage_used + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("apply usage delta: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return errs.NotFound("user not found")
	}

	if delta < 0 {
		delta = -delta
	}

	metrics.StorageDelta.WithLabelValues(reason).Add(float64(delta))

	return nil
}

// Admit 检查一批字节能否计入配额，超出时返回 QuotaExceeded.
func (a *Accountant) Admit(ctx context.Context, userID string, candidate int64) (*model.User, error) {
	var u model.User
	if err := a.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}

	if u.StorageUsed+candidate > u.StorageLimit {
		metrics.QuotaRejections.Inc()

		return &u, errs.QuotaExceeded("storage quota exceeded: %d of %d bytes used, %d requested",
			u.StorageUsed, u.StorageLimit, candidate)
	}

	return &u, nil
}

// actualUsage 重新求和未删除文件的大小.
func actualUsage(tx *gorm.DB, userID string) (int64, error) {
	var sum int64

	err := tx.Model(&model.File{}).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("sum usage: %w", err)
	}

	return sum, nil
}

// Repair 比较记录值与实际值，apply 为 true 时修正漂移.
func (a *Accountant) Repair(ctx context.Context, userID string, apply bool) (types.UsageReport, error) {
	report := types.UsageReport{UserID: userID}

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u model.User
		if err := tx.Where("id = ?", userID).First(&u).Error; err != nil {
			return notFoundOr(err, "user")
		}

		actual, err := actualUsage(tx, userID)
		if err != nil {
			return err
		}

		report.Recorded = u.StorageUsed
		report.Actual = actual
		report.Drift = u.StorageUsed - actual

		if report.Drift == 0 || !apply {
			return nil
		}

		if err := tx.Model(&model.User{}).Where("id = ?", userID).
			UpdateColumn("storage_used", actual).Error; err != nil {
			return fmt.Errorf("repair usage: %w", err)
		}

		report.Repaired = true

		return nil
	})
	if err != nil {
		return report, err
	}

	if report.Repaired {
		d := report.Drift
		if d < 0 {
			d = -d
		}

		metrics.StorageDelta.WithLabelValues(reasonRepair).Add(float64(d))
		nlog.Ctx(ctx).Warn().
			Str("user", userID).
			Int64("recorded", report.Recorded).
			Int64("actual", report.Actual).
			Msg("storage usage repaired")
	}

	return report, nil
}

// RepairAll 逐个用户核对用量.
func (a *Accountant) RepairAll(ctx context.Context, apply bool) (types.RepairUsageResponse, error) {
	var out types.RepairUsageResponse

	var ids []string
	if err := a.db.WithContext(ctx).Model(&model.User{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return out, fmt.Errorf("list users: %w", err)
	}

	out.Reports = make([]types.UsageReport, 0, len(ids))

	for _, id := range ids {
		r, err := a.Repair(ctx, id, apply)
		if err != nil {
			return out, err
		}

		if r.Drift != 0 {
			out.Drifted++
		}

		if r.Repaired {
			out.Repaired++
		}

		out.Reports = append(out.Reports, r)
	}

	return out, nil
}
