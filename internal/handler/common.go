package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"habitus/internal/middleware"
	"habitus/internal/model"
	"habitus/internal/service"
	pkgerrors "habitus/pkg/errors"
	"habitus/pkg/response"
)

// currentUser 解析请求身份并加载（或首次创建）用户记录
// 失败时已写好错误响应，调用方直接 return 即可
func currentUser(ctx context.Context, c *app.RequestContext) (*model.User, bool) {
	publicID, ok := middleware.GetUserPublicID(c)
	if !ok {
		response.Error(ctx, c, pkgerrors.InvalidUserID)
		return nil, false
	}

	user, err := service.User().GetOrCreate(ctx, publicID)
	if err != nil {
		response.Error(ctx, c, err)
		return nil, false
	}
	return user, true
}
