package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"habitus/internal/checkin"
	"habitus/internal/model/dto"
	"habitus/internal/service"
	"habitus/pkg/response"
)

// ========== 任务 ==========

// ListTasks 按周/象限/完成状态过滤任务
// GET /v1/tasks
func ListTasks(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var query dto.TaskListQuery
	if err := c.BindQuery(&query); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Task().ListTasks(ctx, user, query)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// CreateTask 新建任务
// POST /v1/tasks
func CreateTask(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Task().CreateTask(ctx, user, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// UpdateTask 修改任务
// PATCH /v1/tasks/:task_id
func UpdateTask(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Task().UpdateTask(ctx, user, c.Param("task_id"), req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// DeleteTask 删除任务
// DELETE /v1/tasks/:task_id
func DeleteTask(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	if err := service.Task().DeleteTask(ctx, user, c.Param("task_id")); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// ToggleTask 翻转任务完成状态
// POST /v1/tasks/:task_id/toggle
func ToggleTask(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.Task().ToggleTask(ctx, user, c.Param("task_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// ========== 角色与目标 ==========

// ListRoles 列出角色
// GET /v1/roles
func ListRoles(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.Plan().ListRoles(ctx, user)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// CreateRole 新建角色
// POST /v1/roles
func CreateRole(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.CreateRoleRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Plan().CreateRole(ctx, user, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// DeleteRole 删除角色
// DELETE /v1/roles/:role_id
func DeleteRole(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	if err := service.Plan().DeleteRole(ctx, user, c.Param("role_id")); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// ListGoals 列出目标，可按角色过滤
// GET /v1/goals?role_id=xxx
func ListGoals(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.Plan().ListGoals(ctx, user, c.Query("role_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// CreateGoal 新建目标
// POST /v1/goals
func CreateGoal(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.CreateGoalRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Plan().CreateGoal(ctx, user, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// DeleteGoal 删除目标
// DELETE /v1/goals/:goal_id
func DeleteGoal(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	if err := service.Plan().DeleteGoal(ctx, user, c.Param("goal_id")); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// ========== 周推进 ==========

// AdvanceWeek 推进到下一个计划周，拦截态下被门禁拒绝
// POST /v1/weeks/advance
func AdvanceWeek(ctx context.Context, c *app.RequestContext) {
	user, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	// 破坏性操作，先过周检门禁
	if err := service.CheckIn().GuardAction(ctx, user, checkin.ActionAdvanceWeek); err != nil {
		response.Error(ctx, c, err)
		return
	}

	result, err := service.Plan().AdvanceWeek(ctx, user)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
