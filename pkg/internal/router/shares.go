package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/handle"
)

// RegisterShareRoutes 注册分享路由，/share 与 /api/shared/:token 不要求登录.
func RegisterShareRoutes(e *gin.Engine, g *gin.RouterGroup) {
	e.GET("/share/:token", handle.SharePage)

	sharedRoutes := g.Group("/shared")
	{
		sharedRoutes.GET("", handle.ListShared)
		sharedRoutes.GET("/:token/download", handle.SharedDownload)
		sharedRoutes.GET("/:token/preview", handle.SharedPreview)
		sharedRoutes.GET("/:token/thumbnail", handle.SharedThumbnail)
	}
}
