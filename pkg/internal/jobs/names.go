package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobTrashRetention = "trash.retention"
	JobOrphanSweep    = "orphan.sweep"
	JobUsageDrift     = "usage.drift"
)

// Cron 表达式常量.
const (
	CronTrashRetention = "0 7,19 * * *"
	CronUsageDrift     = "30 3 * * *"
)
