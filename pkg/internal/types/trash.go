package types

import "github.com/yeisme/cloudbox/pkg/internal/model"

// TrashListResponse 回收站内容.
type TrashListResponse struct {
	Files   []model.File   `json:"files"`
	Folders []model.Folder `json:"folders"`
}

// EmptyTrashResult 清空回收站汇总.
type EmptyTrashResult struct {
	Message       string `json:"message"`
	PurgedFiles   int    `json:"purgedFiles"`
	PurgedFolders int    `json:"purgedFolders"`
}

// RetentionResult 定时清理结果.
type RetentionResult struct {
	PurgedFiles   int `json:"purgedFiles"`
	PurgedFolders int `json:"purgedFolders"`
}
