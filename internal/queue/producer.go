package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"habitus/internal/model"
	"habitus/pkg/logger"
	"habitus/pkg/metrics"
	"habitus/pkg/snowflake"
	"habitus/storage/mq"
)

// PublishCheckInReminder 发送一批延迟的周检提醒
// delay 是距现在的投递延迟，worker 到点后逐用户投递
func PublishCheckInReminder(ctx context.Context, msg *model.CheckInReminderMessage, delay time.Duration) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate message id: %w", err)
		}
		msg.MessageID = fmt.Sprintf("ci_reminder_%d", id)
	}
	if msg.ScheduledAt == "" {
		msg.ScheduledAt = time.Now().Add(delay).Format(time.RFC3339)
	}
	msg.DelaySeconds = int(delay.Seconds())

	err := mq.PublishDelayedMessage(mq.DelayedExchange, mq.RoutingKeyCheckInReminder, delay, msg)
	if err != nil {
		return fmt.Errorf("failed to publish check-in reminder: %w", err)
	}

	logger.Logger.Info("Published check-in reminder batch",
		zap.String("message_id", msg.MessageID),
		zap.String("week_start", msg.WeekStart),
		zap.Int("milestone_day", msg.MilestoneDay),
		zap.Int("users", len(msg.UserIDs)),
		zap.Duration("delay", delay),
	)

	metrics.GetMetrics().RecordReminderPublished(ctx, msg.MilestoneDay)
	return nil
}

// PublishWeekAdvanced 发送周推进事件
func PublishWeekAdvanced(ctx context.Context, msg *model.WeekAdvancedMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextID()
		if err != nil {
			return fmt.Errorf("failed to generate message id: %w", err)
		}
		msg.MessageID = fmt.Sprintf("week_adv_%d", id)
	}

	err := mq.PublishMessage(mq.DelayedExchange, mq.RoutingKeyWeekAdvanced, msg)
	if err != nil {
		return fmt.Errorf("failed to publish week advanced event: %w", err)
	}

	logger.Logger.Debug("Published week advanced event",
		zap.String("message_id", msg.MessageID),
		zap.Int64("user_id", msg.UserID),
		zap.Int("to_week", msg.ToWeek),
	)
	return nil
}
