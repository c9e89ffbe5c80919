package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/configs"
	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/service"
)

const (
	bearerPrefix = "Bearer "
	// devUserHeader 认证关闭时用于指定身份的请求头.
	devUserHeader = "X-User-ID"
)

// AuthMiddleware 校验 Bearer 令牌并把用户写入请求上下文.
//   - 缺少令牌返回 401，令牌无效返回 403，用户不存在或已停用返回 401
//   - skip_paths 中的路径前缀不要求令牌，但仍记录请求来源
//   - 认证关闭时信任 X-User-ID 请求头，仅用于本地开发
//
// 依赖 InjectMiddleware 先注入 Manager.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxPkg.WithClientInfo(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		if isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		if !conf.Enabled {
			if id := strings.TrimSpace(c.GetHeader(devUserHeader)); id != "" {
				setUser(c, id, model.RoleUser)
				c.Next()

				return
			}

			abort(c, errs.Unauthorized("access token required"))

			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			abort(c, errs.Unauthorized("access token required"))
			return
		}

		u, err := service.NewAuthService(ctx).Authenticate(ctx, token)
		if err != nil {
			abort(c, err)
			return
		}

		setUser(c, u.ID, u.Role)
		c.Next()
	}
}

func setUser(c *gin.Context, id, role string) {
	c.Set("userID", id)
	c.Request = c.Request.WithContext(ctxPkg.WithUser(c.Request.Context(), id, role))
}

func bearerToken(h string) string {
	h = strings.TrimSpace(h)
	if len(h) < len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}

	return strings.TrimSpace(h[len(bearerPrefix):])
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
