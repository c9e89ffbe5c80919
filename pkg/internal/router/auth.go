package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/handle"
)

// RegisterAuthRoutes 注册账户相关路由.
func RegisterAuthRoutes(g *gin.RouterGroup) {
	authRoutes := g.Group("/auth")
	{
		authRoutes.POST("/register", handle.Register)
		authRoutes.POST("/login", handle.Login)
		authRoutes.POST("/logout", handle.Logout)
	}

	g.GET("/user/profile", handle.Profile)
	g.GET("/activity", handle.Activity)
}
