package configs

import (
	"time"

	"github.com/spf13/viper"
)

// JobsConfig 定时维护任务配置.
type JobsConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	TrashRetentionDays  int           `mapstructure:"trash_retention_days"  rule:"min=1"`
	OrphanSweepInterval time.Duration `mapstructure:"orphan_sweep_interval"`
	AutoRepairUsage     bool          `mapstructure:"auto_repair_usage"`
	Timezone            string        `mapstructure:"timezone"`
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.trash_retention_days", 30)
	v.SetDefault("jobs.orphan_sweep_interval", 6*time.Hour)
	v.SetDefault("jobs.auto_repair_usage", false)
	v.SetDefault("jobs.timezone", "Local")
}
