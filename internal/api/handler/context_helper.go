package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Mortal/shiftplanner/internal/api/middleware"
	"github.com/Mortal/shiftplanner/internal/changelog"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
	"github.com/Mortal/shiftplanner/pkg/response"
)

// pathID 解析路径中的正整数 ID；失败时写入 400 响应，调用方应直接 return
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, codeBadRequest, name+" 无效")
		return 0, false
	}
	return id, true
}

// workplaceID 路径参数 :workplace
func workplaceID(c *gin.Context) (int64, bool) {
	return pathID(c, "workplace")
}

// parseDate 解析 YYYY-MM-DD；失败时写入 400 响应
func parseDate(c *gin.Context, field, s string) (dateutil.Date, bool) {
	d, err := dateutil.ParseDate(s)
	if err != nil {
		response.BadRequest(c, codeBadRequest, field+" 格式应为 YYYY-MM-DD")
		return dateutil.Date{}, false
	}
	return d, true
}

func contextID(c *gin.Context, key string) (int64, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// currentActor 由上游身份头得出变更日志的操作者
func currentActor(c *gin.Context) changelog.Actor {
	var a changelog.Actor
	if id, ok := contextID(c, middleware.UserIDKey); ok {
		a.UserID = &id
	}
	if id, ok := contextID(c, middleware.WorkerIDKey); ok {
		a.WorkerID = &id
	}
	return a
}

// mustActAs 值班人员只能以自己的身份报名或备注，管理员可代为操作
func mustActAs(c *gin.Context, workerID int64) bool {
	if _, ok := contextID(c, middleware.UserIDKey); ok {
		return true
	}
	self, ok := contextID(c, middleware.WorkerIDKey)
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return false
	}
	if self != workerID {
		response.Forbidden(c, 10003, "只能操作本人的排班")
		return false
	}
	return true
}
