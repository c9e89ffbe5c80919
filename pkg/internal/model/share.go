package model

import (
	"time"

	"gorm.io/gorm"
)

// PermissionRead 只读分享.
const PermissionRead = "read"

// Share 分享记录；同一文件重新分享时旧记录置为非活跃.
type Share struct {
	ID          string     `gorm:"primaryKey;size:26"            json:"id"`
	FileID      string     `gorm:"size:26;not null;index"        json:"fileId"`
	UserID      string     `gorm:"size:26;not null;index"        json:"userId"`
	ShareToken  string     `gorm:"size:64;not null;uniqueIndex"  json:"shareToken"`
	Permissions string     `gorm:"size:32;not null"              json:"permissions"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	IsActive    bool       `gorm:"not null;index"                json:"isActive"`
	AccessCount int64      `gorm:"not null"                      json:"accessCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// BeforeCreate 生成主键.
func (s *Share) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)

	if s.Permissions == "" {
		s.Permissions = PermissionRead
	}

	return nil
}
