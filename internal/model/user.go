package model

// UserStatus 用户状态枚举
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"   // 正常使用
	UserStatusDisabled UserStatus = "disabled" // 停用，调度器跳过
)

// User 用户模型
// 周界线（周一 00:00）按 Timezone 的本地日历计算
type User struct {
	BaseModel
	PublicID int64      `gorm:"uniqueIndex;not null" json:"public_id"`
	Nickname string     `gorm:"type:varchar(64);not null;default:''" json:"nickname"`
	Status   UserStatus `gorm:"type:varchar(16);not null;default:'active';index:idx_users_status" json:"status"`

	// 自定义设置部分
	Timezone         string `gorm:"type:varchar(64);not null;default:'Europe/Madrid'" json:"timezone"`
	RemindersEnabled bool   `gorm:"not null;default:true" json:"reminders_enabled"`

	// 当前计划周序号，advance week 时递增
	CurrentWeek int `gorm:"not null;default:1" json:"current_week"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// StatusToStringMap 用户状态到展示字符串
var StatusToStringMap = map[UserStatus]string{
	UserStatusActive:   "active",
	UserStatusDisabled: "disabled",
}
