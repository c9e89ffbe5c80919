package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultJWTSecret         = "cloudbox-dev-secret" // 仅用于本地开发
	DefaultTokenTTL          = 7 * 24 * time.Hour    // 令牌有效期
	DefaultBcryptCost        = 12                    // bcrypt 计算成本
	DefaultMinPasswordLength = 6                     // 最小密码长度
)

// AuthConfig 控制 Bearer 令牌认证与密码策略.
type AuthConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	JWTSecret         string        `mapstructure:"jwt_secret"          rule:"required"`
	Issuer            string        `mapstructure:"issuer"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	BcryptCost        int           `mapstructure:"bcrypt_cost"         rule:"min=4,max=31"`
	MinPasswordLength int           `mapstructure:"min_password_length" rule:"min=1"`
	SkipPaths         []string      `mapstructure:"skip_paths"` // 跳过认证的路径前缀
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.jwt_secret", DefaultJWTSecret)
	v.SetDefault("auth.issuer", "cloudbox")
	v.SetDefault("auth.token_ttl", DefaultTokenTTL)
	v.SetDefault("auth.bcrypt_cost", DefaultBcryptCost)
	v.SetDefault("auth.min_password_length", DefaultMinPasswordLength)
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/api/health",
		"/api/auth/register",
		"/api/auth/login",
		"/api/shared/",
		"/share/",
		"/swagger",
	})
}
