package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"habitus/config"
	"habitus/internal/model"
	"habitus/internal/model/dto"
	pkgerrors "habitus/pkg/errors"
	"habitus/pkg/logger"
	"habitus/storage/database"
)

// api 中使用的 user_id 是 public_id

var (
	userService *UserService
	userOnce    sync.Once
)

func User() *UserService {
	userOnce.Do(func() {
		userService = &UserService{}
	})
	return userService
}

type UserService struct{}

// GetByPublicID 按公开 ID 查询用户
func (s *UserService) GetByPublicID(ctx context.Context, publicID int64) (*model.User, error) {
	db := database.DB().WithContext(ctx)

	var user model.User
	err := db.Where("public_id = ?", publicID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.UserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// GetOrCreate 查询用户，不存在则以默认设置创建
// 个人应用没有注册流程，首次出现的 ID 直接落库
func (s *UserService) GetOrCreate(ctx context.Context, publicID int64) (*model.User, error) {
	user, err := s.GetByPublicID(ctx, publicID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pkgerrors.UserNotFound) {
		return nil, err
	}

	db := database.DB().WithContext(ctx)
	created := model.User{
		PublicID:         publicID,
		Status:           model.UserStatusActive,
		Timezone:         config.Cfg.DefaultTimezone,
		RemindersEnabled: true,
		CurrentWeek:      1,
	}

	if err := db.Create(&created).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Logger.Info("Created new user",
		zap.Int64("user_id", publicID),
		zap.String("timezone", created.Timezone),
	)

	return &created, nil
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(ctx context.Context, publicID int64) (*dto.UserProfileData, error) {
	user, err := s.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	return &dto.UserProfileData{
		UserID:           strconv.FormatInt(user.PublicID, 10),
		Nickname:         user.Nickname,
		Status:           model.StatusToStringMap[user.Status],
		Timezone:         user.Timezone,
		RemindersEnabled: user.RemindersEnabled,
		CurrentWeek:      user.CurrentWeek,
	}, nil
}

// UpdateSettings 修改用户设置
// 时区改动只影响后续的周界线计算，历史状态不回算
func (s *UserService) UpdateSettings(ctx context.Context, publicID int64, req dto.UpdateUserSettingsRequest) (*dto.UserProfileData, error) {
	user, err := s.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Nickname != nil {
		updates["nickname"] = *req.Nickname
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, pkgerrors.InvalidTimezone
		}
		updates["timezone"] = *req.Timezone
	}
	if req.RemindersEnabled != nil {
		updates["reminders_enabled"] = *req.RemindersEnabled
	}

	if len(updates) > 0 {
		db := database.DB().WithContext(ctx)
		if err := db.Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update user settings: %w", err)
		}
	}

	return s.GetProfile(ctx, publicID)
}

// ListActiveWithReminders 调度器用：所有启用提醒的活跃用户
func (s *UserService) ListActiveWithReminders(ctx context.Context) ([]*model.User, error) {
	db := database.DB().WithContext(ctx)

	var users []*model.User
	err := db.Where("status = ?", string(model.UserStatusActive)).
		Where("reminders_enabled = ?", true).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users for reminders: %w", err)
	}

	return users, nil
}
