package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// streamingPaths 字节流路由，内容多为已压缩的媒体，不再压缩.
var streamingPaths = []string{
	`^/api/files/[^/]+/(download|preview|thumbnail)$`,
	`^/api/shared/[^/]+/(download|preview|thumbnail)$`,
	`^/metrics`,
	`^/debug/pprof`,
}

// GzipMiddleware 压缩 JSON 与 HTML 响应.
func GzipMiddleware() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs(streamingPaths))
}
