package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"habitus/internal/cache"
	"habitus/internal/model"
	"habitus/internal/queue"
	"habitus/internal/service"
	"habitus/pkg/logger"
	"habitus/utils"
)

// 每天扫一遍所有启用提醒的用户，把命中里程碑的用户按
// (周界线, 里程碑日) 分组，批量投递延迟提醒消息。

// publishDelay 扫描与实际投递之间留的缓冲，worker 端投递前还会复核
const publishDelay = time.Minute

var sweepRunning atomic.Bool

// reminderBatch 同一周界线同一里程碑日的一组用户
type reminderBatch struct {
	weekStart    string
	milestoneDay int
	userIDs      []int64
}

// WeeklySweep 执行一轮提醒扫描
// 幂等：单实例内用原子标记防重入，跨实例靠 Redis 调度标记去重
func WeeklySweep(ctx context.Context) error {
	if !sweepRunning.CompareAndSwap(false, true) {
		logger.Logger.Warn("Reminder sweep already running, skipping this round")
		return nil
	}
	defer sweepRunning.Store(false)

	started := time.Now()
	users, err := service.User().ListActiveWithReminders(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reminder users: %w", err)
	}

	batches := make(map[string]*reminderBatch)
	evaluated, matched, deduped, capped := 0, 0, 0, 0

	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		evaluated++
		state, show := service.CheckIn().EvaluateForReminder(ctx, user)
		if !show || state.LastCheckIn == nil || state.CurrentWeekStart == nil {
			continue
		}
		matched++

		now := time.Now().In(utils.LoadLocation(user.Timezone))
		milestoneDay := utils.DaysBetween(*state.LastCheckIn, now)
		weekStart := state.CurrentWeekStart.Format("2006-01-02")

		// 同一里程碑对同一用户只提醒一次
		scheduled, err := cache.IsReminderScheduled(ctx, weekStart, milestoneDay, user.PublicID)
		if err != nil {
			logger.Logger.Warn("Failed to check reminder schedule mark",
				zap.Int64("user_id", user.PublicID),
				zap.Error(err),
			)
		}
		if scheduled {
			deduped++
			continue
		}

		allowed, _, err := cache.CheckMonthlyReminderLimit(ctx, user.PublicID)
		if err == nil && !allowed {
			capped++
			continue
		}

		key := fmt.Sprintf("%s|%d", weekStart, milestoneDay)
		batch, ok := batches[key]
		if !ok {
			batch = &reminderBatch{weekStart: weekStart, milestoneDay: milestoneDay}
			batches[key] = batch
		}
		batch.userIDs = append(batch.userIDs, user.PublicID)
	}

	published := 0
	for _, batch := range batches {
		msg := &model.CheckInReminderMessage{
			BatchID:      uuid.NewString(),
			WeekStart:    batch.weekStart,
			MilestoneDay: batch.milestoneDay,
			UserIDs:      batch.userIDs,
		}
		if err := queue.PublishCheckInReminder(ctx, msg, publishDelay); err != nil {
			logger.Logger.Error("Failed to publish reminder batch",
				zap.String("week_start", batch.weekStart),
				zap.Int("milestone_day", batch.milestoneDay),
				zap.Error(err),
			)
			continue
		}
		published++

		for _, userID := range batch.userIDs {
			if err := cache.MarkReminderScheduled(ctx, batch.weekStart, batch.milestoneDay, userID); err != nil {
				logger.Logger.Warn("Failed to mark reminder scheduled",
					zap.Int64("user_id", userID),
					zap.Error(err),
				)
			}
		}
	}

	logger.Logger.Info("Reminder sweep finished",
		zap.Int("evaluated", evaluated),
		zap.Int("matched", matched),
		zap.Int("deduped", deduped),
		zap.Int("capped", capped),
		zap.Int("batches_published", published),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}
