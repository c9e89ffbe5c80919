package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/handle"
)

// RegisterFolderRoutes 注册文件夹路由.
func RegisterFolderRoutes(g *gin.RouterGroup) {
	folderRoutes := g.Group("/folders")
	{
		folderRoutes.POST("", handle.CreateFolder)
		folderRoutes.GET("/all", handle.ListAllFolders)
		folderRoutes.POST("/:id/rename", handle.RenameFolder)
		folderRoutes.POST("/:id/move", handle.MoveFolder)
		folderRoutes.DELETE("/:id", handle.TrashFolder)
	}
}

// RegisterTrashRoutes 注册回收站路由.
func RegisterTrashRoutes(g *gin.RouterGroup) {
	trashRoutes := g.Group("/trash")
	{
		trashRoutes.GET("", handle.ListTrash)
		trashRoutes.DELETE("", handle.EmptyTrash)
		trashRoutes.DELETE("/files/:id", handle.PurgeFile)
		trashRoutes.POST("/files/:id/restore", handle.RestoreFile)
		trashRoutes.DELETE("/folders/:id", handle.PurgeFolder)
		trashRoutes.POST("/folders/:id/restore", handle.RestoreFolder)
	}
}
