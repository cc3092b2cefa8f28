package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"habitus/internal/model/dto"
	"habitus/internal/service"
	"habitus/pkg/response"
)

// GetCheckInStatus 查询周检门禁状态，前端每次加载时调用
// GET /v1/check-ins/status
func GetCheckInStatus(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.CheckIn().GetStatus(ctx, user)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// OpenReviewSession 打开回顾会话
// POST /v1/check-ins/session
func OpenReviewSession(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.CheckIn().OpenSession(ctx, user)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetReviewSession 查询在途会话快照
// GET /v1/check-ins/session
func GetReviewSession(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.CheckIn().GetSession(ctx, user)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// ToggleSessionTask 会话内勾选/取消勾选任务
// POST /v1/check-ins/session/tasks/:task_id/toggle
func ToggleSessionTask(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	taskID := c.Param("task_id")
	result, err := service.CheckIn().ToggleSessionTask(ctx, user, taskID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// PostponeCheckIn 延后本次周检并关闭会话
// POST /v1/check-ins/session/postpone
func PostponeCheckIn(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	if err := service.CheckIn().PostponeSession(ctx, user); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// CloseReviewSession 关闭会话（拦截态下会被拒绝）
// DELETE /v1/check-ins/session
func CloseReviewSession(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	if err := service.CheckIn().CloseSession(ctx, user); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// CompleteCheckIn 完成周检
// POST /v1/check-ins/session/complete
func CompleteCheckIn(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.CompleteCheckInRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.CheckIn().CompleteSession(ctx, user, req.Reflection)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetLastReview 查询最近一次周回顾
// GET /v1/check-ins/last-review
func GetLastReview(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.CheckIn().GetLastReview(ctx, user)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// ResetCheckInState 重置周检状态（开发环境调试用）
// POST /v1/check-ins/reset
func ResetCheckInState(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	service.CheckIn().Reset(ctx, user)
	response.NoContent(ctx, c)
}
