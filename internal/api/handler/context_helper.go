package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"icodses/backend/internal/api/middleware"
	"icodses/backend/internal/model"
	"icodses/backend/internal/service"
	"icodses/backend/pkg/response"
)

// MustGetCaller 从 Gin 上下文中提取 JWT 中间件注入的调用方身份。
// 缺失时写入 401 响应并返回 false，调用方应直接 return。
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	v, exists := c.Get(middleware.CtxUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return service.Caller{}, false
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		response.Unauthorized(c, 10002, "未认证")
		return service.Caller{}, false
	}

	return service.Caller{
		ID:    id,
		Role:  model.Role(c.GetString(middleware.CtxRole)),
		Track: c.GetString(middleware.CtxTrack),
	}, true
}

// tokenInfo 当前 Token 的 jti 与过期时间，用于注销
func tokenInfo(c *gin.Context) (string, time.Time) {
	jti := c.GetString(middleware.CtxTokenJTI)
	exp, _ := c.Get(middleware.CtxTokenExp)
	t, _ := exp.(time.Time)
	return jti, t
}

// parseIDParam 解析路径中的正整数 ID，失败时写入 400
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	if raw == "" {
		response.BadRequest(c, 10001, name+" 不能为空")
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, name+" 必须是正整数")
		return 0, false
	}
	return uint(id), true
}
