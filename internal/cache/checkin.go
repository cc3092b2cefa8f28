package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"habitus/config"
	"habitus/storage/redis"
)

const (
	// 提醒投放标记，调度器据此跳过已投放的里程碑，避免重复打扰
	reminderScheduledPrefix = "checkin:reminder:scheduled"
	messageProcessedPrefix  = "message:processed"
	reminderMonthlyPrefix   = "checkin:reminder:monthly" // 月度提醒限制

	scheduledTTL = 8 * 24 * time.Hour // 覆盖整个提醒窗口（第 7~10 天）
	processedTTL = 48 * time.Hour
)

// IsReminderScheduled 检查某周界线下某里程碑的提醒是否已投放
func IsReminderScheduled(ctx context.Context, weekStart string, milestoneDay int, userID int64) (bool, error) {
	key := reminderKey(weekStart, milestoneDay, userID)
	result, err := redis.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check reminder scheduled status: %w", err)
	}
	return result > 0, nil
}

// MarkReminderScheduled 标记提醒已投放
func MarkReminderScheduled(ctx context.Context, weekStart string, milestoneDay int, userID int64) error {
	return redis.Client().Set(ctx, reminderKey(weekStart, milestoneDay, userID), "1", scheduledTTL).Err()
}

// UnmarkReminderScheduled 清除投放标记（重试或调试用）
func UnmarkReminderScheduled(ctx context.Context, weekStart string, milestoneDay int, userID int64) error {
	if err := redis.Client().Del(ctx, reminderKey(weekStart, milestoneDay, userID)).Err(); err != nil {
		return fmt.Errorf("failed to unmark reminder scheduled: %w", err)
	}
	return nil
}

func reminderKey(weekStart string, milestoneDay int, userID int64) string {
	return redis.Key(reminderScheduledPrefix, weekStart, fmt.Sprintf("d%d", milestoneDay), fmt.Sprintf("%d", userID))
}

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（SETNX）
// 返回 true 表示首次处理，false 表示重复消息或正在处理
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 取消处理标记（处理失败时调用，允许重试）
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 标记消息已处理（处理成功时调用，延长 TTL）
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}

// ========== 月度提醒限流 ==========

// GetMonthlyReminderCount 获取用户本月的提醒发送次数
// monthKey 格式: "2006-01"
func GetMonthlyReminderCount(ctx context.Context, userID int64, monthKey string) (int, error) {
	key := redis.Key(reminderMonthlyPrefix, fmt.Sprintf("%d", userID), monthKey)
	count, err := redis.Client().Get(ctx, key).Int()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get monthly reminder count: %w", err)
	}
	return count, nil
}

// IncrementMonthlyReminderCount 增加本月提醒计数，过期时间为下月 1 号
func IncrementMonthlyReminderCount(ctx context.Context, userID int64, monthKey string) error {
	key := redis.Key(reminderMonthlyPrefix, fmt.Sprintf("%d", userID), monthKey)

	now := time.Now()
	nextMonth := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	ttl := nextMonth.Sub(now)

	pipe := redis.Client().Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment monthly reminder count: %w", err)
	}
	return nil
}

// CheckMonthlyReminderLimit 检查是否超过月度提醒上限
func CheckMonthlyReminderLimit(ctx context.Context, userID int64) (bool, int, error) {
	monthKey := time.Now().Format("2006-01")
	count, err := GetMonthlyReminderCount(ctx, userID, monthKey)
	if err != nil {
		return true, 0, err // 出错时降级，允许发送
	}
	return count < config.Cfg.MonthlyReminderLimit, count, nil
}
