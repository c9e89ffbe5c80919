package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

// RepairUsage 重新汇总用户用量，dryRun 时只报告.
//
//	@Summary	修复存储用量
//	@Tags		管理
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		types.RepairUsageRequest	false	"用户与模式，userId 为空处理所有用户"
//	@Success	200		{object}	types.RepairUsageResponse
//	@Router		/api/admin/usage/repair [post]
func RepairUsage(c *gin.Context) {
	var req types.RepairUsageRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewMaintenanceService(ctx).RepairUsage(ctx, req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
