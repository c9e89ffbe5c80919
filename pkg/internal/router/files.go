package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/handle"
)

// RegisterFilesRoutes 注册文件操作相关路由.
func RegisterFilesRoutes(g *gin.RouterGroup) {
	filesRoutes := g.Group("/files")
	{
		filesRoutes.GET("", handle.ListFiles)
		filesRoutes.POST("/upload", handle.UploadFiles)

		// 单个文件操作
		singleGroup := filesRoutes.Group("/:id")
		{
			singleGroup.GET("/download", handle.DownloadFile)
			singleGroup.GET("/preview", handle.PreviewFile)
			singleGroup.GET("/thumbnail", handle.FileThumbnail)
			singleGroup.DELETE("", handle.TrashFile)
			singleGroup.POST("/rename", handle.RenameFile)
			singleGroup.POST("/move", handle.MoveFile)
			singleGroup.PATCH("/meta", handle.UpdateFileMeta)
			singleGroup.POST("/favorite", handle.ToggleFavorite)
			singleGroup.POST("/share", handle.CreateShare)
			singleGroup.DELETE("/share", handle.RevokeShare)
		}
	}

	g.GET("/favorites", handle.Favorites)
	g.GET("/search", handle.Search)
}
