package configs

import "github.com/spf13/viper"

// DefaultMaxFolderDepth 级联操作允许的最大目录深度.
const DefaultMaxFolderDepth = 64

// LifecycleConfig 文件生命周期行为.
type LifecycleConfig struct {
	// ReleaseBytesOnTrash 为 true 时移入回收站即尝试删除物理字节，之后的恢复会得到 SourceMissing.
	ReleaseBytesOnTrash bool `mapstructure:"release_bytes_on_trash"`
	MaxFolderDepth      int  `mapstructure:"max_folder_depth"       rule:"min=1,max=4096"`
	// VerifyBlobsOnList 列表时逐个检查物理字节并自愈孤儿记录.
	VerifyBlobsOnList bool `mapstructure:"verify_blobs_on_list"`
}

func (c *LifecycleConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("lifecycle.release_bytes_on_trash", false)
	v.SetDefault("lifecycle.max_folder_depth", DefaultMaxFolderDepth)
	v.SetDefault("lifecycle.verify_blobs_on_list", true)
}
