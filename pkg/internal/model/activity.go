package model

import (
	"time"

	"gorm.io/gorm"
)

// Action 活动类型.
type Action string

const (
	ActionUpload       Action = "upload"
	ActionDownload     Action = "download"
	ActionPreview      Action = "preview"
	ActionDelete       Action = "delete"
	ActionRestore      Action = "restore"
	ActionPurge        Action = "purge"
	ActionShare        Action = "share"
	ActionUnshare      Action = "unshare"
	ActionRename       Action = "rename"
	ActionMove         Action = "move"
	ActionCreateFolder Action = "create_folder"
	ActionDeleteFolder Action = "delete_folder"
	ActionLogin        Action = "login"
	ActionLogout       Action = "logout"
)

// ActivityLog 追加写入的用户活动日志.
type ActivityLog struct {
	ID        string         `gorm:"primaryKey;size:26"         json:"id"`
	UserID    string         `gorm:"size:26;not null;index"     json:"userId"`
	FileID    *string        `gorm:"size:26;index"              json:"fileId,omitempty"`
	Action    Action         `gorm:"size:32;not null;index"     json:"action"`
	Details   map[string]any `gorm:"type:text;serializer:json"  json:"details,omitempty"`
	IPAddress string         `gorm:"size:64"                    json:"ipAddress,omitempty"`
	UserAgent string         `gorm:"size:512"                   json:"userAgent,omitempty"`
	CreatedAt time.Time      `gorm:"index"                      json:"createdAt"`
}

// BeforeCreate 生成主键.
func (a *ActivityLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)

	return nil
}
