package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultShareExpireDays    = 30
	DefaultShareMaxExpireDays = 365
	DefaultShareCacheTTL      = 10 * time.Minute
)

// ShareConfig 分享链接配置.
type ShareConfig struct {
	DefaultExpireDays int           `mapstructure:"default_expire_days" rule:"min=0"`
	MaxExpireDays     int           `mapstructure:"max_expire_days"     rule:"min=1"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	CachePrefix       string        `mapstructure:"cache_prefix"`
}

func (c *ShareConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("share.default_expire_days", DefaultShareExpireDays)
	v.SetDefault("share.max_expire_days", DefaultShareMaxExpireDays)
	v.SetDefault("share.cache_ttl", DefaultShareCacheTTL)
	v.SetDefault("share.cache_prefix", "share:")
}
