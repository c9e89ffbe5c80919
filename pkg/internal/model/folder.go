package model

import (
	"time"

	"gorm.io/gorm"
)

// Folder 文件夹，Path 为从根开始以 / 连接的名称.
// 根文件夹的 Path 等于 Name，没有前导斜杠.
type Folder struct {
	ID        string     `gorm:"primaryKey;size:26"                                  json:"id"`
	UserID    string     `gorm:"size:26;not null;index:idx_folders_owner_parent,priority:1" json:"userId"`
	ParentID  *string    `gorm:"size:26;index:idx_folders_owner_parent,priority:2"   json:"parentId"`
	IsDeleted bool       `gorm:"not null;index:idx_folders_owner_parent,priority:3"  json:"isDeleted"`
	Name      string     `gorm:"size:255;not null"                                   json:"name"`
	Path      string     `gorm:"type:text;not null"                                  json:"path"`
	TrashedAt *time.Time `gorm:"index"                                               json:"trashedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// BeforeCreate 生成主键.
func (f *Folder) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)

	return nil
}

// ChildPath 计算子项路径.
func ChildPath(parent *Folder, name string) string {
	if parent == nil {
		return name
	}

	return parent.Path + "/" + name
}
