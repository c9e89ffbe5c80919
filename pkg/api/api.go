// Package api 组装 HTTP 接口，供 app 与测试共用.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/router"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/scheduler"
)

// RegisterGroup 在传入的 gin 引擎上注册中间件与全部路由.
func RegisterGroup(e *gin.Engine, mgr *storage.Manager, sched *scheduler.Scheduler) *gin.Engine {
	return router.Setup(e, mgr, sched)
}

// NewEngine 创建一个已注册全部路由的 gin 引擎.
func NewEngine(mgr *storage.Manager, sched *scheduler.Scheduler) *gin.Engine {
	if !mgr.Config.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	return RegisterGroup(gin.New(), mgr, sched)
}
