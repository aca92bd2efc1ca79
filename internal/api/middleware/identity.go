package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Mortal/shiftplanner/pkg/response"
)

// 上游认证代理写入的身份头
const (
	HeaderUserID   = "X-Shift-User-ID"
	HeaderWorkerID = "X-Shift-Worker-ID"

	UserIDKey   = "user_id"
	WorkerIDKey = "worker_id"
)

// Identity 读取上游注入的管理员 / 值班人员身份
// 头存在但不是正整数时直接拒绝；两者都缺失的请求按匿名处理
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		for header, key := range map[string]string{HeaderUserID: UserIDKey, HeaderWorkerID: WorkerIDKey} {
			v := c.GetHeader(header)
			if v == "" {
				continue
			}
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				response.Unauthorized(c, 10002, "身份头格式无效")
				c.Abort()
				return
			}
			c.Set(key, id)
		}
		c.Next()
	}
}

// RequireAdmin 仅允许管理员访问
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(UserIDKey); !ok {
			response.Forbidden(c, 10003, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireIdentity 管理员或值班人员均可
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, isUser := c.Get(UserIDKey)
		_, isWorker := c.Get(WorkerIDKey)
		if !isUser && !isWorker {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}
		c.Next()
	}
}
