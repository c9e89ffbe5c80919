package queue

import "time"

// EventHeader 所有事件的通用头部.
type EventHeader struct {
	// Topic 冗余记录主题，便于离线转储后定位来源.
	Topic      string    `json:"topic"`
	TraceID    string    `json:"trace_id,omitempty"`
	Producer   string    `json:"producer,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Version    string    `json:"version,omitempty"`
}

// Message Header + Payload 信封.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// FileRef 事件中引用的文件.
type FileRef struct {
	FileID   string  `json:"file_id"`
	UserID   string  `json:"user_id"`
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	MimeType string  `json:"mime_type,omitempty"`
	FolderID *string `json:"folder_id,omitempty"`
}

// FileUploadedPayload 一批上传.
type FileUploadedPayload struct {
	UserID string    `json:"user_id"`
	Files  []FileRef `json:"files"`
	Bytes  int64     `json:"bytes"`
}

// FileChangedPayload 用于 trashed/restored/purged.
type FileChangedPayload struct {
	File FileRef `json:"file"`
	// Released 本次操作从 storageUsed 中扣减的字节.
	Released int64 `json:"released,omitempty"`
}

// FileOrphanedPayload 字节缺失，记录被删除.
type FileOrphanedPayload struct {
	File FileRef `json:"file"`
	// Source 触发自愈的位置，如 list、download、restore、sweep.
	Source string `json:"source"`
}

// FileRenamedPayload 重命名.
type FileRenamedPayload struct {
	File    FileRef `json:"file"`
	OldName string  `json:"old_name"`
}

// FileMovedPayload 移动.
type FileMovedPayload struct {
	File FileRef `json:"file"`
	From *string `json:"from,omitempty"`
	To   *string `json:"to,omitempty"`
}

// FolderCascadePayload 文件夹级联操作的汇总.
type FolderCascadePayload struct {
	FolderID     string `json:"folder_id"`
	UserID       string `json:"user_id"`
	Folders      int    `json:"folders"`
	Files        int    `json:"files"`
	MissingFiles int    `json:"missing_files,omitempty"`
	Bytes        int64  `json:"bytes"`
}

// SharePayload 分享创建、撤销与访问.
type SharePayload struct {
	FileID    string     `json:"file_id"`
	UserID    string     `json:"user_id"`
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// QuotaExceededPayload 上传被配额拒绝.
type QuotaExceededPayload struct {
	UserID    string `json:"user_id"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Requested int64  `json:"requested"`
}
