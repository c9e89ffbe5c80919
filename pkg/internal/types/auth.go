package types

import (
	"time"

	"github.com/yeisme/cloudbox/pkg/internal/model"
)

// RegisterRequest 注册.
type RegisterRequest struct {
	Name     string `json:"name"     rule:"required,max=100"`
	Email    string `json:"email"    rule:"required,email,max=255"`
	Password string `json:"password" rule:"required"`
}

// LoginRequest 登录.
type LoginRequest struct {
	Email    string `json:"email"    rule:"required,email"`
	Password string `json:"password" rule:"required"`
}

// UserSummary 对外展示的用户信息.
type UserSummary struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	StorageUsed  int64      `json:"storageUsed"`
	StorageLimit int64      `json:"storageLimit"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// UserSummaryOf 构造用户摘要.
func UserSummaryOf(u *model.User) UserSummary {
	return UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		StorageUsed:  u.StorageUsed,
		StorageLimit: u.StorageLimit,
		LastLogin:    u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}

// AuthResponse 注册与登录结果.
type AuthResponse struct {
	Message   string      `json:"message"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      UserSummary `json:"user"`
}
