package dto

import "time"

// ========== 计划（roles/goals/tasks）相关 DTO ==========

// CreateRoleRequest 新建角色
type CreateRoleRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RoleItem 角色列表项
type RoleItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	SortOrder int    `json:"sort_order"`
}

// CreateGoalRequest 新建目标
type CreateGoalRequest struct {
	RoleID string `json:"role_id"`
	Title  string `json:"title"`
}

// GoalItem 目标列表项
type GoalItem struct {
	ID        string `json:"id"`
	RoleID    string `json:"role_id"`
	Title     string `json:"title"`
	SortOrder int    `json:"sort_order"`
}

// CreateTaskRequest 新建任务
type CreateTaskRequest struct {
	Description string `json:"description"`
	Quadrant    string `json:"quadrant"`
	GoalID      string `json:"goal_id,omitempty"`
	Week        int    `json:"week,omitempty"` // 缺省为当前周
}

// UpdateTaskRequest 修改任务
type UpdateTaskRequest struct {
	Description *string `json:"description,omitempty"`
	Quadrant    *string `json:"quadrant,omitempty"`
	GoalID      *string `json:"goal_id,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}

// TaskItem 任务列表项
type TaskItem struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Quadrant    string     `json:"quadrant"`
	GoalID      string     `json:"goal_id,omitempty"`
	Week        int        `json:"week"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	SortOrder   int        `json:"sort_order"`
}

// TaskListQuery 任务列表查询参数
type TaskListQuery struct {
	Week      int    `query:"week"`
	Quadrant  string `query:"quadrant"`
	Completed string `query:"completed"` // "", "true", "false"
}

// AdvanceWeekResponse 周推进响应
type AdvanceWeekResponse struct {
	FromWeek     int `json:"from_week"`
	ToWeek       int `json:"to_week"`
	CarriedTasks int `json:"carried_tasks"`
}
