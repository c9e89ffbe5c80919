package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/configs"
)

// CORSMiddleware CORS中间件，cors_origins 为空或处于调试模式时允许所有来源.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowHeaders = append(config.AllowHeaders, "Authorization")
	config.ExposeHeaders = []string{"Content-Disposition", "Content-Length"}

	if cfg.Debug || len(cfg.CORSOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = cfg.CORSOrigins
		config.AllowCredentials = true
	}

	return cors.New(config)
}
