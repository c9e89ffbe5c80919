// Package router 管理路由配置，把中间件与处理器绑定到 gin 引擎.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/handle"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/middleware"
	"github.com/yeisme/cloudbox/pkg/rule"
	"github.com/yeisme/cloudbox/pkg/scheduler"
)

// Setup 挂载全局中间件与全部路由，sched 可以为 nil.
// 认证在注入 Manager 之后，限流在认证之后以便按用户限流.
func Setup(e *gin.Engine, mgr *storage.Manager, sched *scheduler.Scheduler) *gin.Engine {
	cfg := mgr.Config

	// 让 ShouldBind 使用 rule 标签
	rule.Engine()

	e.MaxMultipartMemory = cfg.Server.MaxMultipartMemory

	e.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.CORSMiddleware(cfg.Server),
		middleware.GzipMiddleware(),
		middleware.CircuitBreakerMiddleware(cfg.CircuitBreaker),
		middleware.InjectMiddleware(mgr, sched),
		middleware.AuthMiddleware(cfg.Auth),
		middleware.RateLimitMiddleware(cfg.RateLimit),
	)

	api := e.Group("/api")

	RegisterAuthRoutes(api)
	RegisterFilesRoutes(api)
	RegisterFolderRoutes(api)
	RegisterTrashRoutes(api)
	RegisterShareRoutes(e, api)
	RegisterHealthCheckRoute(api)
	RegisterAdminRoutes(api)
	RegisterSwaggerRoute(e, cfg)

	e.NoRoute(handle.NotFound)

	return e
}
