package configs

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// S3Config S3 兼容对象存储的连接配置，minio 与 aws 两种字节存储共用.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"       rule:"required"`
	Region          string `mapstructure:"region"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	MaxRetries      int    `mapstructure:"max_retries"       rule:"min=0,max=20"`
	Prefix          string `mapstructure:"prefix"` // 对象键前缀，可为空
}

const (
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3BucketName      = "cloudbox"       // 默认存储桶名称
	DefaultS3Region          = "us-east-1"      // 默认区域
	DefaultS3MaxRetries      = 3                // 默认重试次数
)

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	if strings.Contains(c.Endpoint, "://") {
		return c.Endpoint
	}

	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.use_path_style", true)
	v.SetDefault("s3.max_retries", DefaultS3MaxRetries)
	v.SetDefault("s3.prefix", "")
}
