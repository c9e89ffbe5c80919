// Package handle 提供 HTTP 请求处理器，解析参数后调用 service 并按错误种类返回状态码.
package handle

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/log"
	"github.com/yeisme/cloudbox/pkg/rule"
)

// ErrorResponse 错误响应体，调用方按 code 分支.
type ErrorResponse struct {
	Error string    `json:"error"`
	Code  errs.Code `json:"code"`
}

// MessageResponse 只有提示信息的响应.
type MessageResponse struct {
	Message string `json:"message"`
}

// NotFound 未匹配的路由.
func NotFound(c *gin.Context) {
	fail(c, errs.NotFound("endpoint not found"))
}

// fail 写入错误响应，5xx 记录日志.
func fail(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: errs.MessageOf(err), Code: errs.CodeOf(err)})
}

// userID 认证中间件写入的当前用户.
func userID(c *gin.Context) (string, bool) {
	id := ctxPkg.GetUserID(c.Request.Context())
	if id == "" {
		fail(c, errs.Unauthorized("access token required"))
		return "", false
	}

	return id, true
}

// bindJSON 解析并按 rule 标签校验请求体.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, invalidInput(err))
		return false
	}

	return true
}

// bindOptionalJSON 请求体为空时保留零值.
func bindOptionalJSON(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		if err := rule.ValidateStruct(req); err != nil {
			fail(c, invalidInput(err))
			return false
		}

		return true
	}

	return bindJSON(c, req)
}

func invalidInput(err error) error {
	fields := rule.Errors(err)
	if len(fields) == 0 {
		return errs.Validation("invalid request body")
	}

	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, k+" "+v)
	}

	sort.Strings(parts)

	return errs.Validation("%s", strings.Join(parts, "; "))
}

// optionalID 空字符串视为未指定.
func optionalID(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	return &s
}
