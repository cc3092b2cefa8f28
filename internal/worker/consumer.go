package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"habitus/internal/cache"
	"habitus/internal/model"
	"habitus/internal/service"
	pkgerrors "habitus/pkg/errors"
	"habitus/pkg/logger"
	"habitus/storage/mq"
)

const (
	processingTTL = 10 * time.Minute
	processedTTL  = 48 * time.Hour
)

// StartAllConsumers 启动全部消费者，每个队列一个 goroutine
func StartAllConsumers(ctx context.Context) {
	go runConsumer(ctx, mq.ConsumeOptions{
		Queue:         mq.QueueCheckInReminder,
		ConsumerTag:   "checkin-reminder-worker",
		PrefetchCount: 10,
		Handler:       handleCheckInReminder(ctx),
	})

	go runConsumer(ctx, mq.ConsumeOptions{
		Queue:         mq.QueueWeekAdvanced,
		ConsumerTag:   "week-advanced-worker",
		PrefetchCount: 20,
		Handler:       handleWeekAdvanced(ctx),
	})
}

// runConsumer 断线后退避重连
func runConsumer(ctx context.Context, opts mq.ConsumeOptions) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := mq.Consume(opts); err != nil {
			logger.Logger.Error("Consumer stopped, retrying",
				zap.String("queue", opts.Queue),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// handleCheckInReminder 处理延迟到点的周检提醒批次
func handleCheckInReminder(ctx context.Context) mq.MessageHandler {
	return func(body []byte) error {
		var msg model.CheckInReminderMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("malformed reminder message: %v", err)}
		}
		if msg.MessageID == "" {
			return &pkgerrors.SkipMessageError{Reason: "reminder message without message_id"}
		}

		// SETNX 去重，防止重复投递
		acquired, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, processingTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire processing mark: %w", err)
		}
		if !acquired {
			return &pkgerrors.SkipMessageError{Reason: "message already processed or in flight"}
		}

		delivered, skipped := 0, 0
		for _, userID := range msg.UserIDs {
			if err := deliverReminderToUser(ctx, userID, &msg); err != nil {
				skipped++
				continue
			}
			delivered++
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, processedTTL); err != nil {
			logger.Logger.Warn("Failed to persist processed mark",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}

		logger.Logger.Info("Processed check-in reminder batch",
			zap.String("message_id", msg.MessageID),
			zap.Int("milestone_day", msg.MilestoneDay),
			zap.Int("delivered", delivered),
			zap.Int("skipped", skipped),
		)
		return nil
	}
}

// deliverReminderToUser 单用户投递，提醒在投递时刻重新校验是否仍然需要
func deliverReminderToUser(ctx context.Context, userID int64, msg *model.CheckInReminderMessage) error {
	user, err := service.User().GetByPublicID(ctx, userID)
	if err != nil {
		logger.Logger.Warn("Reminder target user not found",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return err
	}
	if !user.RemindersEnabled || user.Status != model.UserStatusActive {
		return nil
	}

	// 调度与投递之间用户可能已完成周检
	still, err := service.CheckIn().IsReminderStillDue(ctx, user, msg.MilestoneDay)
	if err != nil {
		logger.Logger.Warn("Failed to re-evaluate reminder, delivering anyway",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	} else if !still {
		return nil
	}

	err = service.Notification().DeliverReminder(ctx, user, msg.MilestoneDay)
	if err != nil && !errors.Is(err, pkgerrors.ReminderLimitReached) {
		return err
	}
	return nil
}

// handleWeekAdvanced 周推进事件落审计日志
func handleWeekAdvanced(ctx context.Context) mq.MessageHandler {
	return func(body []byte) error {
		var msg model.WeekAdvancedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return &pkgerrors.SkipMessageError{Reason: fmt.Sprintf("malformed week advanced message: %v", err)}
		}

		logger.Logger.Info("Week advanced",
			zap.String("message_id", msg.MessageID),
			zap.Int64("user_id", msg.UserID),
			zap.Int("from_week", msg.FromWeek),
			zap.Int("to_week", msg.ToWeek),
			zap.Int("carried_tasks", msg.CarriedTasks),
			zap.String("advanced_at", msg.AdvancedAt),
		)
		return nil
	}
}
