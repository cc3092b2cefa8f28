package dto

import "time"

// ========== CheckIn 相关 DTO ==========

// CheckInStatusData 周检门禁状态
type CheckInStatusData struct {
	LastCheckIn      *time.Time `json:"last_check_in,omitempty"`
	CurrentWeekStart *time.Time `json:"current_week_start,omitempty"`
	IsPending        bool       `json:"is_pending"`
	IsBlocking       bool       `json:"is_blocking"`
	ReminderCount    int        `json:"reminder_count"`
	ShowReminder     bool       `json:"show_reminder"`
	SessionOpen      bool       `json:"session_open"`
}

// SessionTaskItem 会话快照中的待办项
type SessionTaskItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quadrant    string `json:"quadrant"`
}

// SessionSnapshotData 回顾会话快照
type SessionSnapshotData struct {
	SessionID      string            `json:"session_id"`
	TotalCount     int               `json:"total_count"`
	CompletedCount int               `json:"completed_count"`
	PendingList    []SessionTaskItem `json:"pending_list"`
	IsBlocking     bool              `json:"is_blocking"` // 为 true 时前端不得提供关闭手势
}

// CompleteCheckInRequest 完成周检请求
type CompleteCheckInRequest struct {
	Reflection string `json:"reflection"`
}

// CompleteCheckInResponse 完成周检响应
type CompleteCheckInResponse struct {
	CompletedAt  time.Time `json:"completed_at"`
	Week         int       `json:"week"`
	WeekAdvanced bool      `json:"week_advanced"` // 周推进副作用是否成功
}

// LastReviewData 最近一次周回顾
type LastReviewData struct {
	WeekStart   string    `json:"week_start"`
	Week        int       `json:"week"`
	Reflection  string    `json:"reflection"`
	TasksTotal  int       `json:"tasks_total"`
	TasksDone   int       `json:"tasks_done"`
	CompletedAt time.Time `json:"completed_at"`
}
