package types

// CreateFolderRequest 创建文件夹.
type CreateFolderRequest struct {
	Name     string  `json:"name"     rule:"required,objname"`
	ParentID *string `json:"parentId"`
}

// MoveFolderRequest 移动文件夹，nil 表示移到根.
type MoveFolderRequest struct {
	ParentID *string `json:"parentId"`
}

// TrashFolderResult 文件夹移入回收站的汇总.
type TrashFolderResult struct {
	Message        string `json:"message"`
	DeletedFiles   int    `json:"deletedFiles"`
	DeletedFolders int    `json:"deletedFolders"`
	FreedSpace     int64  `json:"freedSpace"`
}

// RestoreFolderResult 文件夹恢复汇总，字节缺失的文件被清除并计入 MissingFiles.
type RestoreFolderResult struct {
	Message         string `json:"message"`
	RestoredFiles   int    `json:"restoredFiles"`
	MissingFiles    int    `json:"missingFiles"`
	RestoredFolders int    `json:"restoredFolders"`
	RestoredSpace   int64  `json:"restoredSpace"`
}

// PurgeFolderResult 文件夹永久删除汇总.
type PurgeFolderResult struct {
	Message       string `json:"message"`
	PurgedFiles   int    `json:"purgedFiles"`
	PurgedFolders int    `json:"purgedFolders"`
}
