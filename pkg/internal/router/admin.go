package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/handle"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/middleware"
)

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	healthRoutes := g.Group("/health")
	{
		healthRoutes.GET("/db", handle.Health(storage.ComponentDB))
		healthRoutes.GET("/blob", handle.Health(storage.ComponentBlob))
		healthRoutes.GET("/kv", handle.Health(storage.ComponentKV))
		healthRoutes.GET("/mq", handle.Health(storage.ComponentMQ))
	}
}

// RegisterAdminRoutes 注册仅管理员可用的维护路由.
func RegisterAdminRoutes(g *gin.RouterGroup) {
	admin := g.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/scheduler/jobs", handle.SchedulerJobs)
		admin.POST("/scheduler/jobs/:name/run", handle.SchedulerRunJob)
		admin.POST("/usage/repair", handle.RepairUsage)
	}
}
