// Package middleware 提供 gin 中间件：认证、角色、限流、熔断、观测与依赖注入.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
)

// abort 以统一的错误体终止请求.
func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errs.HTTPStatus(err), gin.H{
		"error": errs.MessageOf(err),
		"code":  errs.CodeOf(err),
	})
}
