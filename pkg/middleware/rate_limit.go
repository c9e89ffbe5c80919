package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/cloudbox/pkg/configs"
	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
)

const (
	// limiterIdleTTL 超过该时长未访问的 limiter 会被回收.
	limiterIdleTTL  = 10 * time.Minute
	cleanupInterval = time.Minute
)

// RateLimitMiddleware 返回一个基于配置的限流中间件.
// key 取值 global、ip、user 或 header:<Name>，按用户限流时需挂在认证之后.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	mode := strings.TrimSpace(cfg.Key)
	if strings.EqualFold(mode, "global") || mode == "" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				tooMany(c)
				return
			}

			c.Next()
		}
	}

	set := newLimiterSet(rate.Limit(cfg.RPS), cfg.Burst)
	keyOf := keyFunc(mode)

	return func(c *gin.Context) {
		if !set.get(keyOf(c)).Allow() {
			tooMany(c)
			return
		}

		c.Next()
	}
}

// keyFunc 按模式生成限流键，取不到时退回客户端 IP.
func keyFunc(mode string) func(*gin.Context) string {
	lower := strings.ToLower(mode)

	var primary func(*gin.Context) string

	switch {
	case strings.HasPrefix(lower, "header:"):
		name := mode[len("header:"):]
		primary = func(c *gin.Context) string { return c.GetHeader(name) }
	case lower == "user":
		primary = func(c *gin.Context) string { return ctxPkg.GetUserID(c.Request.Context()) }
	default:
		primary = func(*gin.Context) string { return "" }
	}

	return func(c *gin.Context) string {
		if k := primary(c); k != "" {
			return k
		}

		if ip := clientIP(c); ip != "" {
			return ip
		}

		return "unknown"
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 每个键一个 limiter，闲置的在访问时顺带回收.
type limiterSet struct {
	mu          sync.Mutex
	limit       rate.Limit
	burst       int
	entries     map[string]*limiterEntry
	lastCleanup time.Time
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		limit:       limit,
		burst:       burst,
		entries:     make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if now.Sub(s.lastCleanup) > cleanupInterval {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(s.entries, k)
			}
		}

		s.lastCleanup = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}

	e.lastSeen = now

	return e.limiter
}

func tooMany(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "rate limit exceeded, please try again later",
		"code":  errs.CodeRateLimited,
	})
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return host
}
