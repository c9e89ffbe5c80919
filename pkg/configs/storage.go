package configs

import "github.com/spf13/viper"

// BlobType 物理字节存储类型.
type BlobType string

const (
	BlobTypeLocal BlobType = "local" // 本地目录
	BlobTypeMinio BlobType = "minio" // minio-go 客户端
	BlobTypeS3    BlobType = "s3"    // aws-sdk-go-v2 客户端

	DefaultBlobType  = BlobTypeLocal
	DefaultLocalRoot = "uploads"
)

// StorageConfig 选择文件字节的存放位置.
type StorageConfig struct {
	Type  BlobType           `mapstructure:"type"  rule:"oneof=local minio s3"`
	Local LocalStorageConfig `mapstructure:"local"`
}

// LocalStorageConfig 本地目录存储.
type LocalStorageConfig struct {
	Root     string `mapstructure:"root"      rule:"required"`
	DirPerm  uint32 `mapstructure:"dir_perm"`
	FilePerm uint32 `mapstructure:"file_perm"`
}

func (c *StorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.type", DefaultBlobType)
	v.SetDefault("storage.local.root", DefaultLocalRoot)
	v.SetDefault("storage.local.dir_perm", 0o755)
	v.SetDefault("storage.local.file_perm", 0o644)
}
