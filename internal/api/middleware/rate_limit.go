package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/pkg/response"
)

// RateLimiter 限流后端（pkg/redis.Client 实现）
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// 按值班人员（无身份时按 IP）与路由分别计数；limiter 为 nil 或出错时降级放行
func RateLimit(limiter RateLimiter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		subject := "ip:" + c.ClientIP()
		if id, ok := c.Get(WorkerIDKey); ok {
			subject = fmt.Sprintf("worker:%d", id)
		}
		key := fmt.Sprintf("shiftplanner:rate_limit:%s:%s", subject, c.FullPath())

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("限流检查失败，放行请求", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			response.TooManyRequests(c, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}
