// Package jobs 负责注册与实现维护定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/yeisme/cloudbox/pkg/configs"
	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/scheduler"
)

// Location 解析任务时区，空值或 Local 使用本地时区.
func Location(cfg configs.JobsConfig) (*time.Location, error) {
	if cfg.Timezone == "" || cfg.Timezone == "Local" {
		return time.Local, nil
	}

	return time.LoadLocation(cfg.Timezone)
}

// RegisterCronJobs 配置维护任务：
//   - 每天 07:00 和 19:00 永久删除超过保留期的回收站内容
//   - 每隔 orphan_sweep_interval 巡检所有未删除文件的字节
//   - 每天 03:30 核对用量，按配置自动修复
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if mgr == nil || mgr.Config == nil {
		return errors.New("storage manager is nil")
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	if err := sched.AddCron(baseCtx, JobTrashRetention, CronTrashRetention, runTrashRetention); err != nil {
		return err
	}

	if err := sched.AddInterval(baseCtx, JobOrphanSweep, mgr.Config.Jobs.OrphanSweepInterval, runOrphanSweep); err != nil {
		return err
	}

	return sched.AddCron(baseCtx, JobUsageDrift, CronUsageDrift, runUsageDrift)
}

func runTrashRetention(ctx context.Context) error {
	_, err := service.NewMaintenanceService(ctx).PurgeExpiredTrash(ctx)
	return err
}

func runOrphanSweep(ctx context.Context) error {
	_, err := service.NewMaintenanceService(ctx).SweepOrphans(ctx)
	return err
}

func runUsageDrift(ctx context.Context) error {
	_, err := service.NewMaintenanceService(ctx).UsageDrift(ctx)
	return err
}
