package configs

import "github.com/spf13/viper"

// EventsConfig 控制领域事件发布的开关（全局与分主题）.
type EventsConfig struct {
	Enabled bool               `mapstructure:"enabled"` // 总开关
	File    FileEventsConfig   `mapstructure:"file"`
	Folder  FolderEventsConfig `mapstructure:"folder"`
	Share   ShareEventsConfig  `mapstructure:"share"`
	Quota   QuotaEventsConfig  `mapstructure:"quota"`
}

// FileEventsConfig 文件生命周期事件.
type FileEventsConfig struct {
	Uploaded bool `mapstructure:"uploaded"`
	Trashed  bool `mapstructure:"trashed"`
	Restored bool `mapstructure:"restored"`
	Purged   bool `mapstructure:"purged"`
	Orphaned bool `mapstructure:"orphaned"`
	Renamed  bool `mapstructure:"renamed"`
	Moved    bool `mapstructure:"moved"`
}

// FolderEventsConfig 文件夹级联事件.
type FolderEventsConfig struct {
	Trashed  bool `mapstructure:"trashed"`
	Restored bool `mapstructure:"restored"`
	Purged   bool `mapstructure:"purged"`
}

// ShareEventsConfig 分享事件.
type ShareEventsConfig struct {
	Created  bool `mapstructure:"created"`
	Revoked  bool `mapstructure:"revoked"`
	Accessed bool `mapstructure:"accessed"`
}

// QuotaEventsConfig 配额事件.
type QuotaEventsConfig struct {
	Exceeded bool `mapstructure:"exceeded"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)

	v.SetDefault("events.file.uploaded", true)
	v.SetDefault("events.file.trashed", true)
	v.SetDefault("events.file.restored", true)
	v.SetDefault("events.file.purged", true)
	v.SetDefault("events.file.orphaned", true)
	v.SetDefault("events.file.renamed", false)
	v.SetDefault("events.file.moved", false)

	v.SetDefault("events.folder.trashed", true)
	v.SetDefault("events.folder.restored", true)
	v.SetDefault("events.folder.purged", true)

	v.SetDefault("events.share.created", true)
	v.SetDefault("events.share.revoked", true)
	v.SetDefault("events.share.accessed", false) // 访问量可能很大，默认关闭

	v.SetDefault("events.quota.exceeded", true)
}
