package middleware

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	pkgerrors "habitus/pkg/errors"
	"habitus/pkg/response"
)

// 个人应用没有登录态，调用方通过 X-User-ID 头声明身份。
// 部署假定在可信边界内（本机或内网反向代理之后）。

const userIDKey = "user_id"

// UserIdentityMiddleware 解析并校验 X-User-ID 头
func UserIdentityMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		raw := string(c.GetHeader("X-User-ID"))
		if raw == "" {
			c.Abort()
			response.Error(ctx, c, pkgerrors.InvalidUserID)
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.Abort()
			response.Error(ctx, c, pkgerrors.InvalidUserID)
			return
		}

		c.Set(userIDKey, id)
		c.Next(ctx)
	}
}

// GetUserID 从请求上下文取用户公开 ID（字符串形式）
func GetUserID(ctx context.Context, c *app.RequestContext) (string, bool) {
	id, ok := GetUserPublicID(c)
	if !ok {
		return "", false
	}
	return strconv.FormatInt(id, 10), true
}

// GetUserPublicID 从请求上下文取用户公开 ID
func GetUserPublicID(c *app.RequestContext) (int64, bool) {
	v, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
