package types

import "time"

// CreateShareRequest 创建分享，ExpiresIn 以天为单位，缺省 30.
type CreateShareRequest struct {
	ExpiresIn *int `json:"expiresIn" rule:"omitempty,min=0"`
}

// ShareResponse 创建分享的结果.
type ShareResponse struct {
	Message    string      `json:"message"`
	ShareURL   string      `json:"shareUrl"`
	ShareToken string      `json:"shareToken"`
	ExpiresAt  time.Time   `json:"expiresAt"`
	File       FileSummary `json:"file"`
}

// ShareSnapshot 分享解析所需的最小信息，缓存于 KV.
type ShareSnapshot struct {
	ShareID   string     `json:"shareId"`
	FileID    string     `json:"fileId"`
	UserID    string     `json:"userId"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Expired 过期时间早于或等于 now 视为过期.
func (s ShareSnapshot) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// SharedFileView 匿名访问者看到的分享信息.
type SharedFileView struct {
	Token       string      `json:"token"`
	File        FileSummary `json:"file"`
	SharedBy    string      `json:"sharedBy"`
	ExpiresAt   *time.Time  `json:"expiresAt,omitempty"`
	AccessCount int64       `json:"accessCount"`
}
