package model

import "time"

// 计划层级：Role -> Goal -> Task
// 每个任务落在一个紧急/重要四象限里，并归属某个计划周

// Quadrant 紧急/重要四象限
type Quadrant string

const (
	QuadrantUrgentImportant       Quadrant = "q1" // 紧急且重要
	QuadrantNotUrgentImportant    Quadrant = "q2" // 重要不紧急
	QuadrantUrgentNotImportant    Quadrant = "q3" // 紧急不重要
	QuadrantNotUrgentNotImportant Quadrant = "q4" // 不紧急不重要
)

// ValidQuadrant 判断四象限取值是否合法
func ValidQuadrant(q Quadrant) bool {
	switch q {
	case QuadrantUrgentImportant, QuadrantNotUrgentImportant,
		QuadrantUrgentNotImportant, QuadrantNotUrgentNotImportant:
		return true
	}
	return false
}

// Role 人生角色（如 "父亲"、"工程师"）
type Role struct {
	BaseModel
	UserID   int64  `gorm:"not null;index:idx_roles_user" json:"user_id"`
	PublicID int64  `gorm:"uniqueIndex;not null" json:"public_id"`
	Name     string `gorm:"type:varchar(128);not null" json:"name"`
	Color    string `gorm:"type:varchar(16);not null;default:''" json:"color"`
	SortOrder int   `gorm:"not null;default:0" json:"sort_order"`
}

func (Role) TableName() string {
	return "roles"
}

// Goal 角色下的目标
type Goal struct {
	BaseModel
	UserID    int64  `gorm:"not null;index:idx_goals_user" json:"user_id"`
	RoleID    int64  `gorm:"not null;index:idx_goals_role" json:"role_id"`
	PublicID  int64  `gorm:"uniqueIndex;not null" json:"public_id"`
	Title     string `gorm:"type:varchar(256);not null" json:"title"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
}

func (Goal) TableName() string {
	return "goals"
}

// Task 周计划任务
type Task struct {
	BaseModel
	UserID      int64      `gorm:"not null;index:idx_tasks_user_week" json:"user_id"`
	GoalID      *int64     `gorm:"index:idx_tasks_goal" json:"goal_id,omitempty"` // 可不挂目标
	PublicID    int64      `gorm:"uniqueIndex;not null" json:"public_id"`
	Description string     `gorm:"type:varchar(512);not null" json:"description"`
	Quadrant    Quadrant   `gorm:"type:varchar(4);not null;default:'q2'" json:"quadrant"`
	Week        int        `gorm:"not null;index:idx_tasks_user_week" json:"week"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time `gorm:"type:timestamptz" json:"completed_at,omitempty"`
	SortOrder   int        `gorm:"not null;default:0" json:"sort_order"`
}

func (Task) TableName() string {
	return "tasks"
}
