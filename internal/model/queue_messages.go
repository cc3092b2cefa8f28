package model

// MQ 消息体定义，JSON 编码投递

// CheckInReminderMessage 周检提醒消息（延迟投递）
type CheckInReminderMessage struct {
	MessageID    string  `json:"message_id"`
	BatchID      string  `json:"batch_id"`
	WeekStart    string  `json:"week_start"` // 2006-01-02
	MilestoneDay int     `json:"milestone_day"` // 距上次周检的整日数（7/8/10）
	ScheduledAt  string  `json:"scheduled_at"`
	UserIDs      []int64 `json:"user_ids"`
	DelaySeconds int     `json:"delay_seconds"`
}

// WeekAdvancedMessage 周推进事件消息
type WeekAdvancedMessage struct {
	MessageID    string `json:"message_id"`
	UserID       int64  `json:"user_id"`
	FromWeek     int    `json:"from_week"`
	ToWeek       int    `json:"to_week"`
	CarriedTasks int    `json:"carried_tasks"` // 结转的未完成任务数
	AdvancedAt   string `json:"advanced_at"`
}
