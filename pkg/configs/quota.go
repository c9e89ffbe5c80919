package configs

import "github.com/spf13/viper"

const (
	DefaultStorageLimit      int64 = 2 * 1024 * 1024 * 1024 // 每用户 2GiB
	DefaultMaxFileSize       int64 = 100 * 1024 * 1024      // 单文件 100MiB
	DefaultMaxFilesPerUpload       = 10                     // 单次上传文件数
)

// QuotaConfig 存储配额与上传限制.
type QuotaConfig struct {
	DefaultLimit      int64 `mapstructure:"default_limit"        rule:"gt=0"`
	MaxFileSize       int64 `mapstructure:"max_file_size"        rule:"gt=0"`
	MaxFilesPerUpload int   `mapstructure:"max_files_per_upload" rule:"min=1,max=1000"`
}

func (c *QuotaConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("quota.default_limit", DefaultStorageLimit)
	v.SetDefault("quota.max_file_size", DefaultMaxFileSize)
	v.SetDefault("quota.max_files_per_upload", DefaultMaxFilesPerUpload)
}
