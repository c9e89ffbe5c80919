package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// File 文件元数据，字节位于 Location 指向的存储位置.
// IsDeleted=false 的记录计入所有者的 StorageUsed.
type File struct {
	ID                string     `gorm:"primaryKey;size:26"                                 json:"id"`
	UserID            string     `gorm:"size:26;not null;index:idx_files_owner_folder,priority:1" json:"userId"`
	FolderID          *string    `gorm:"size:26;index:idx_files_owner_folder,priority:2"    json:"folderId"`
	IsDeleted         bool       `gorm:"not null;index:idx_files_owner_folder,priority:3"   json:"isDeleted"`
	Filename          string     `gorm:"size:255;not null"                                  json:"filename"`
	OriginalName      string     `gorm:"size:255;not null;index"                            json:"originalName"`
	Location          string     `gorm:"size:1024;not null"                                 json:"-"`
	FileSize          int64      `gorm:"not null"                                           json:"fileSize"`
	MimeType          string     `gorm:"size:255;not null;index"                            json:"mimeType"`
	Description       string     `gorm:"type:text"                                          json:"description"`
	Tags              []string   `gorm:"type:text;serializer:json"                          json:"tags"`
	IsFavorite        bool       `gorm:"not null"                                           json:"isFavorite"`
	IsShared          bool       `gorm:"not null"                                           json:"isShared"`
	ShareToken        *string    `gorm:"size:64;uniqueIndex"                                json:"shareToken,omitempty"`
	ShareExpires      *time.Time `json:"shareExpires,omitempty"`
	ThumbnailLocation string     `gorm:"size:1024"                                          json:"-"`
	TrashedAt         *time.Time `gorm:"index"                                              json:"trashedAt,omitempty"`
	CreatedAt         time.Time  `gorm:"index"                                              json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// BeforeCreate 生成主键.
func (f *File) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)

	if f.Tags == nil {
		f.Tags = []string{}
	}

	return nil
}

// Kind 文件大类.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
	KindOther    Kind = "other"
)

// documentMimes 被视为文档的 MIME 类型.
var documentMimes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// DocumentMimeTypes 返回文档类 MIME 列表，用于查询条件.
func DocumentMimeTypes() []string {
	out := make([]string, 0, len(documentMimes))
	for m := range documentMimes {
		out = append(out, m)
	}

	return out
}

// KindOf 根据 MIME 判断大类.
func KindOf(mime string) Kind {
	mime = strings.ToLower(mime)

	switch {
	case strings.HasPrefix(mime, "image/"):
		return KindImage
	case strings.HasPrefix(mime, "video/"):
		return KindVideo
	case strings.HasPrefix(mime, "audio/"):
		return KindAudio
	}

	if _, ok := documentMimes[mime]; ok {
		return KindDocument
	}

	return KindOther
}

// Kind 文件大类.
func (f *File) Kind() Kind { return KindOf(f.MimeType) }
