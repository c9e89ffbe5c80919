package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

const timeout = 2 * time.Second

// Health 返回单个组件的健康检查处理器.
//
//	@Summary	组件健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/api/health/{component} [get]
func Health(component storage.Component) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := types.HealthResponse{Component: string(component), Status: "ok"}

		mgr := ctxPkg.GetManager(c.Request.Context())
		if mgr == nil {
			resp.Status, resp.Error = "unhealthy", "storage manager not initialized"
			c.JSON(http.StatusServiceUnavailable, resp)

			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		if err := mgr.Check(ctx, component); err != nil {
			resp.Status, resp.Error = "unhealthy", err.Error()
			c.JSON(http.StatusServiceUnavailable, resp)

			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
