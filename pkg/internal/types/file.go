package types

import (
	"time"

	"github.com/yeisme/cloudbox/pkg/internal/model"
)

// ListFilesQuery 文件列表查询.
type ListFilesQuery struct {
	FolderID string `form:"folderId"`
	// Recent 为 true 时忽略文件夹，返回最近上传的文件.
	Recent bool `form:"recent"`
	Limit  int  `form:"limit"    rule:"omitempty,min=1,max=200"`
	// Type 按大类过滤：image、video、audio、document.
	Type string `form:"type"     rule:"omitempty,oneof=image video audio document"`
}

// ListFilesResponse 文件列表.
type ListFilesResponse struct {
	Files   []model.File   `json:"files"`
	Folders []model.Folder `json:"folders"`
}

// UploadItem 上传批次中的单个文件，Open 在写入时才被调用.
type UploadItem struct {
	Name     string
	Size     int64
	MimeType string
	Open     func() (ReadCloser, error)
}

// UploadFailure 未能写入的条目.
type UploadFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// UploadResponse 上传结果.
type UploadResponse struct {
	Message string          `json:"message"`
	Files   []model.File    `json:"files"`
	Failed  []UploadFailure `json:"failed,omitempty"`
	// Bytes 本次计入配额的字节数.
	Bytes int64 `json:"bytes"`
}

// RenameRequest 重命名文件或文件夹.
type RenameRequest struct {
	NewName string `json:"newName" rule:"required,objname"`
}

// MoveRequest 移动到目标文件夹，nil 表示根目录.
type MoveRequest struct {
	FolderID *string `json:"folderId"`
}

// UpdateMetaRequest 描述与标签.
type UpdateMetaRequest struct {
	Description *string  `json:"description" rule:"omitempty,max=2000"`
	Tags        []string `json:"tags"        rule:"omitempty,max=32,dive,max=64"`
}

// FavoriteResponse 收藏状态.
type FavoriteResponse struct {
	Message    string `json:"message"`
	IsFavorite bool   `json:"isFavorite"`
}

// FileSummary 分享页与分享响应中的文件摘要.
type FileSummary struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	FileSize     int64     `json:"fileSize"`
	MimeType     string    `json:"mimeType"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SummaryOf 构造文件摘要.
func SummaryOf(f *model.File) FileSummary {
	return FileSummary{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		FileSize:     f.FileSize,
		MimeType:     f.MimeType,
		CreatedAt:    f.CreatedAt,
	}
}

// SearchResponse 搜索结果.
type SearchResponse struct {
	Query   string         `json:"query"`
	Files   []model.File   `json:"files"`
	Folders []model.Folder `json:"folders"`
}
