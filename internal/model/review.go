package model

import "time"

// WeeklyReview 周回顾记录，周检完成时写入
// Reflection 允许为空（周检必做，反思可选）
type WeeklyReview struct {
	BaseModel
	UserID      int64     `gorm:"not null;index:idx_weekly_reviews_user" json:"user_id"`
	WeekStart   time.Time `gorm:"type:date;not null;index:idx_weekly_reviews_user" json:"week_start"`
	Week        int       `gorm:"not null" json:"week"`
	Reflection  string    `gorm:"type:text;not null;default:''" json:"reflection"`
	TasksTotal  int       `gorm:"not null;default:0" json:"tasks_total"`
	TasksDone   int       `gorm:"not null;default:0" json:"tasks_done"`
	CompletedAt time.Time `gorm:"type:timestamptz;not null" json:"completed_at"`
}

func (WeeklyReview) TableName() string {
	return "weekly_reviews"
}

// NotificationSeverity 通知级别
type NotificationSeverity string

const (
	NotificationSeverityInfo    NotificationSeverity = "info"
	NotificationSeveritySuccess NotificationSeverity = "success"
	NotificationSeverityWarning NotificationSeverity = "warning"
	NotificationSeverityError   NotificationSeverity = "error"
)

// Notification 用户通知记录，前端轮询展示
type Notification struct {
	BaseModel
	UserID   int64                `gorm:"not null;index:idx_notifications_user" json:"user_id"`
	Message  string               `gorm:"type:varchar(512);not null" json:"message"`
	Severity NotificationSeverity `gorm:"type:varchar(16);not null;default:'info'" json:"severity"`
	ReadAt   *time.Time           `gorm:"type:timestamptz" json:"read_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
