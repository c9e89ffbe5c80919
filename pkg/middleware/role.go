package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
)

// RequireRole 要求当前用户具有给定角色之一，未登录返回 401，角色不符返回 403.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if ctxPkg.GetUserID(ctx) == "" {
			abort(c, errs.Unauthorized("access token required"))
			return
		}

		if !slices.Contains(roles, ctxPkg.GetUserRole(ctx)) {
			abort(c, errs.Forbidden("insufficient role"))
			return
		}

		c.Next()
	}
}

// RequireAdmin 仅管理员可访问.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(model.RoleAdmin)
}
