package dto

import "time"

// ========== 用户相关 DTO ==========

// UserProfileData 用户资料
type UserProfileData struct {
	UserID           string `json:"user_id"`
	Nickname         string `json:"nickname"`
	Status           string `json:"status"`
	Timezone         string `json:"timezone"`
	RemindersEnabled bool   `json:"reminders_enabled"`
	CurrentWeek      int    `json:"current_week"`
}

// UpdateUserSettingsRequest 用户设置修改
type UpdateUserSettingsRequest struct {
	Nickname         *string `json:"nickname,omitempty"`
	Timezone         *string `json:"timezone,omitempty"`
	RemindersEnabled *bool   `json:"reminders_enabled,omitempty"`
}

// NotificationItem 通知列表项
type NotificationItem struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
