// Package configs 管理应用程序配置，包括数据库、对象存储、缓存、队列与配额等配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing quota config:
//
//	config := configs.GetConfig()
//	limit := config.Quota.DefaultLimit
//	fmt.Println("per-user limit:", limit)
package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/cloudbox/pkg/rule"
)

// AppVersion 当前应用版本.
const AppVersion = "1.0.0"

// EnvPrefix 环境变量前缀，如 CLOUDBOX_SERVER_PORT.
const EnvPrefix = "CLOUDBOX"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // 服务器配置
		DB             DBConfig             `mapstructure:"db"`              // 元数据库配置
		S3             S3Config             `mapstructure:"s3"`              // 对象存储连接配置
		Storage        StorageConfig        `mapstructure:"storage"`         // 物理字节存储选择
		KV             KVConfig             `mapstructure:"kv"`              // 键值缓存配置
		MQ             MQConfig             `mapstructure:"mq"`              // 消息队列配置
		Log            LogConfig            `mapstructure:"log"`             // 日志配置
		Auth           AuthConfig           `mapstructure:"auth"`            // 认证配置
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // 监控配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // 追踪配置
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // 限流配置
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // 熔断配置
		Events         EventsConfig         `mapstructure:"events"`          // 领域事件开关
		Quota          QuotaConfig          `mapstructure:"quota"`           // 配额与上传限制
		Share          ShareConfig          `mapstructure:"share"`           // 分享链接
		Thumbnail      ThumbnailConfig      `mapstructure:"thumbnail"`       // 缩略图生成
		Lifecycle      LifecycleConfig      `mapstructure:"lifecycle"`       // 文件生命周期
		Jobs           JobsConfig           `mapstructure:"jobs"`            // 定时任务
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
	// mu 保护热重载期间的配置替换.
	mu sync.RWMutex
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// path 为空或不存在时只使用默认值与环境变量.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	appViper.SetEnvPrefix(EnvPrefix)
	appViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	appViper.AutomaticEnv()

	hasFile := false

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)

		hasFile = true
	} else if path != "" {
		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, dir := range []string{path, filepath.Join(path, "configs")} {
			for _, ext := range exts {
				cfg := filepath.Join(dir, "config."+ext)
				if _, err := os.Stat(cfg); err == nil {
					appViper.SetConfigFile(cfg)

					hasFile = true

					break
				}
			}

			if hasFile {
				break
			}
		}
	}

	// 读取配置
	if hasFile {
		if err := appViper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	// 解析到全局配置
	if err := appViper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setConfig(cfg)

	if hasFile {
		reloadConfigs(appViper, cfg.Server.ReloadConfig)
	}

	return nil
}

// ValidateConfig 使用 rule 标签校验当前配置.
func ValidateConfig() error {
	cfg := GetConfig()
	if err := rule.ValidateStruct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var c AppConfig

	c.Server.setDefaults(v)
	c.DB.setDefaults(v)
	c.S3.setDefaults(v)
	c.Storage.setDefaults(v)
	c.KV.setDefaults(v)
	c.MQ.setDefaults(v)
	c.Log.setDefaults(v)
	c.Auth.setDefaults(v)
	c.Metrics.setDefaults(v)
	c.Tracing.setDefaults(v)
	c.RateLimit.setDefaults(v)
	c.CircuitBreaker.setDefaults(v)
	c.Events.setDefaults(v)
	c.Quota.setDefaults(v)
	c.Share.setDefaults(v)
	c.Thumbnail.setDefaults(v)
	c.Lifecycle.setDefaults(v)
	c.Jobs.setDefaults(v)
}

// DefaultConfig 返回只包含默认值的配置，主要用于测试与命令行工具.
func DefaultConfig() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig
	_ = v.Unmarshal(&cfg)

	return cfg
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		var cfg AppConfig
		if err := v.Unmarshal(&cfg); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)

			return
		}

		setConfig(cfg)
	})
	v.WatchConfig()
}

func setConfig(cfg AppConfig) {
	mu.Lock()
	globalConfig = cfg
	mu.Unlock()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()

	return &globalConfig
}

// GetViper 返回全局 Viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	return appViper
}
