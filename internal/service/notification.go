package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"habitus/internal/cache"
	"habitus/internal/checkin"
	"habitus/internal/model"
	"habitus/internal/model/dto"
	pkgerrors "habitus/pkg/errors"
	"habitus/pkg/logger"
	"habitus/pkg/metrics"
	"habitus/storage/database"
)

var (
	notificationService *NotificationService
	notificationOnce    sync.Once
)

func Notification() *NotificationService {
	notificationOnce.Do(func() {
		notificationService = &NotificationService{}
	})
	return notificationService
}

type NotificationService struct{}

// Create 写入一条应用内通知
func (s *NotificationService) Create(ctx context.Context, user *model.User, message string, severity model.NotificationSeverity) error {
	db := database.DB().WithContext(ctx)

	notification := model.Notification{
		UserID:   user.ID,
		Message:  message,
		Severity: severity,
	}
	if err := db.Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// List 返回用户最近的通知，未读在前
func (s *NotificationService) List(ctx context.Context, user *model.User, limit int) ([]*dto.NotificationItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	db := database.DB().WithContext(ctx)
	var notifications []*model.Notification
	err := db.Where("user_id = ?", user.ID).
		Order("read_at IS NULL DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	items := make([]*dto.NotificationItem, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, &dto.NotificationItem{
			ID:        strconv.FormatInt(n.ID, 10),
			Message:   n.Message,
			Severity:  string(n.Severity),
			Read:      n.ReadAt != nil,
			CreatedAt: n.CreatedAt,
		})
	}
	return items, nil
}

// MarkAllRead 把用户全部未读通知标记为已读
func (s *NotificationService) MarkAllRead(ctx context.Context, user *model.User) error {
	db := database.DB().WithContext(ctx)
	now := time.Now()

	err := db.Model(&model.Notification{}).
		Where("user_id = ?", user.ID).
		Where("read_at IS NULL").
		Update("read_at", &now).Error
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// DeliverReminder 投递一条周检提醒，受每月配额约束
// worker 消费提醒消息时调用
func (s *NotificationService) DeliverReminder(ctx context.Context, user *model.User, milestoneDay int) error {
	allowed, count, err := cache.CheckMonthlyReminderLimit(ctx, user.PublicID)
	if err != nil {
		logger.Logger.Warn("Monthly reminder limit check failed, delivering anyway",
			zap.Int64("user_id", user.PublicID),
			zap.Error(err),
		)
	}
	if !allowed {
		logger.Logger.Info("Monthly reminder limit reached, skipping delivery",
			zap.Int64("user_id", user.PublicID),
			zap.Int("sent_this_month", count),
		)
		return pkgerrors.ReminderLimitReached
	}

	message := reminderMessage(milestoneDay)
	severity := model.NotificationSeverityWarning
	if milestoneDay < checkin.WeekDays+checkin.GraceDays {
		severity = model.NotificationSeverityInfo
	}

	if err := s.Create(ctx, user, message, severity); err != nil {
		return err
	}

	monthKey := time.Now().Format("2006-01")
	if err := cache.IncrementMonthlyReminderCount(ctx, user.PublicID, monthKey); err != nil {
		logger.Logger.Warn("Failed to increment monthly reminder count",
			zap.Int64("user_id", user.PublicID),
			zap.Error(err),
		)
	}

	metrics.GetMetrics().RecordReminderDelivered(ctx)
	return nil
}

func reminderMessage(milestoneDay int) string {
	switch {
	case milestoneDay <= checkin.WeekDays:
		return "A new week has started. Time for your weekly check-in."
	case milestoneDay == checkin.WeekDays+checkin.GraceDays:
		return "Your weekly check-in is overdue. Planning actions are now locked until you complete it."
	default:
		return fmt.Sprintf("Your weekly check-in has been pending for %d days. Complete it to unlock planning.", milestoneDay)
	}
}

// NotifierFor 返回回顾会话使用的通知器
func (s *NotificationService) NotifierFor(user *model.User) checkin.Notifier {
	return &userNotifier{svc: s, user: user}
}

type userNotifier struct {
	svc  *NotificationService
	user *model.User
}

func (n *userNotifier) Notify(ctx context.Context, message, severity string) {
	sev := model.NotificationSeverity(severity)
	switch sev {
	case model.NotificationSeverityInfo, model.NotificationSeveritySuccess,
		model.NotificationSeverityWarning, model.NotificationSeverityError:
	default:
		sev = model.NotificationSeverityInfo
	}

	if err := n.svc.Create(ctx, n.user, message, sev); err != nil {
		// 通知是尽力而为的，失败不影响主流程
		logger.Logger.Warn("Failed to store notification",
			zap.Int64("user_id", n.user.PublicID),
			zap.String("severity", severity),
			zap.Error(err),
		)
	}
}
