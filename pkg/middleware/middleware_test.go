package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yeisme/cloudbox/pkg/configs"
	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/middleware"
)

func serve(e *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	return w
}

func whoami(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{"id": ctxPkg.GetUserID(ctx), "role": ctxPkg.GetUserRole(ctx)})
}

func TestAuthDisabledTrustsHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(middleware.AuthMiddleware(configs.AuthConfig{Enabled: false, SkipPaths: []string{"/open"}}))
	e.GET("/me", whoami)
	e.GET("/open", whoami)

	w := serve(e, http.MethodGet, "/me", map[string]string{"X-User-ID": "u1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u1","role":"user"}`, w.Body.String())

	w = serve(e, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)

	w = serve(e, http.MethodGet, "/open", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMissingBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(middleware.AuthMiddleware(configs.AuthConfig{Enabled: true}))
	e.GET("/me", whoami)

	w := serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Basic abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			ctx := ctxPkg.WithUser(c.Request.Context(), id, c.GetHeader("X-Test-Role"))
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	})
	e.GET("/admin", middleware.RequireAdmin(), whoami)

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/admin", nil).Code)

	w := serve(e, http.MethodGet, "/admin", map[string]string{"X-Test-User": "u1", "X-Test-Role": model.RoleUser})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"FORBIDDEN"`)

	w = serve(e, http.MethodGet, "/admin", map[string]string{"X-Test-User": "u1", "X-Test-Role": model.RoleAdmin})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitByHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{
		Enabled: true, RPS: 0.001, Burst: 1, Key: "header:X-Api-Key",
	}))
	e.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	a := map[string]string{"X-Api-Key": "a"}
	b := map[string]string{"X-Api-Key": "b"}

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/ping", a).Code)

	w := serve(e, http.MethodGet, "/ping", a)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)

	// 不同的键各自计数
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/ping", b).Code)
}

func TestCircuitBreakerOpens(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(middleware.CircuitBreakerMiddleware(configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       2,
		Interval:          time.Minute,
		Timeout:           time.Minute,
		MaxRequestsInHalf: 1,
	}))
	e.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodGet, "/boom", nil).Code)
	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodGet, "/boom", nil).Code)

	w := serve(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"UNAVAILABLE"`)
}

func TestGzipSkipsDownloads(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(middleware.GzipMiddleware())
	e.GET("/api/files", func(c *gin.Context) { c.String(http.StatusOK, "list") })
	e.GET("/api/files/:id/download", func(c *gin.Context) { c.String(http.StatusOK, "bytes") })

	gz := map[string]string{"Accept-Encoding": "gzip"}

	w := serve(e, http.MethodGet, "/api/files", gz)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	w = serve(e, http.MethodGet, "/api/files/abc/download", gz)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "bytes", w.Body.String())
}
