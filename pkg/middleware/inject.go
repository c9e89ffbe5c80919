package middleware

import (
	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/scheduler"
)

// InjectMiddleware 把 Manager 与调度器写入请求上下文，sched 可以为 nil.
// 认证中间件依赖这里注入的 Manager，必须挂在它之前.
func InjectMiddleware(manager *storage.Manager, sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxPkg.WithStorageManager(c.Request.Context(), manager)
		if sched != nil {
			ctx = ctxPkg.WithScheduler(ctx, sched)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
