package configs

import (
	"time"

	"github.com/spf13/viper"
)

// ThumbnailConfig 视频缩略图生成配置，依赖外部 ffmpeg.
type ThumbnailConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	FFmpegPath string        `mapstructure:"ffmpeg_path"`
	Seek       string        `mapstructure:"seek"`
	Width      int           `mapstructure:"width"       rule:"min=16,max=4096"`
	Height     int           `mapstructure:"height"      rule:"min=16,max=4096"`
	Timeout    time.Duration `mapstructure:"timeout"`
	TempDir    string        `mapstructure:"temp_dir"` // 云端存储时的临时目录，空为系统默认
}

func (c *ThumbnailConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("thumbnail.enabled", true)
	v.SetDefault("thumbnail.ffmpeg_path", "ffmpeg")
	v.SetDefault("thumbnail.seek", "00:00:01")
	v.SetDefault("thumbnail.width", 200)
	v.SetDefault("thumbnail.height", 200)
	v.SetDefault("thumbnail.timeout", 30*time.Second)
	v.SetDefault("thumbnail.temp_dir", "")
}
