package model

import (
	"time"

	"gorm.io/gorm"
)

// 角色.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 账户与存储配额.
// StorageUsed 只能通过 gorm.Expr 做原子增减，不要整行保存.
type User struct {
	ID           string     `gorm:"primaryKey;size:26"          json:"id"`
	Name         string     `gorm:"size:100;not null"           json:"name"`
	Email        string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"size:255;not null"           json:"-"`
	StorageUsed  int64      `gorm:"not null"                    json:"storageUsed"`
	StorageLimit int64      `gorm:"not null"                    json:"storageLimit"`
	IsActive     bool       `gorm:"not null;index"              json:"isActive"`
	Role         string     `gorm:"size:32;not null"            json:"role"`
	LastLoginAt  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// BeforeCreate 生成主键.
func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)

	if u.Role == "" {
		u.Role = RoleUser
	}

	return nil
}

// Available 剩余可用字节，超额时为 0.
func (u *User) Available() int64 {
	if u.StorageUsed >= u.StorageLimit {
		return 0
	}

	return u.StorageLimit - u.StorageUsed
}

// IsAdmin 是否管理员.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
