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

	"habitus/internal/checkin"
	"habitus/internal/model"
	"habitus/internal/model/dto"
	"habitus/internal/queue"
	pkgerrors "habitus/pkg/errors"
	"habitus/pkg/logger"
	"habitus/pkg/snowflake"
	"habitus/storage/database"
)

var (
	planService *PlanService
	planOnce    sync.Once
)

func Plan() *PlanService {
	planOnce.Do(func() {
		planService = &PlanService{}
	})
	return planService
}

type PlanService struct{}

// ========== 角色 ==========

// CreateRole 新建人生角色
func (s *PlanService) CreateRole(ctx context.Context, user *model.User, req dto.CreateRoleRequest) (*dto.RoleItem, error) {
	if req.Name == "" {
		return nil, pkgerrors.Definition{Code: "INVALID_REQUEST", Message: "Role name is required"}
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate role id: %w", err)
	}

	db := database.DB().WithContext(ctx)
	role := model.Role{
		UserID:   user.ID,
		PublicID: publicID,
		Name:     req.Name,
		Color:    req.Color,
	}
	if err := db.Create(&role).Error; err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	return roleToItem(&role), nil
}

// ListRoles 列出用户全部角色
func (s *PlanService) ListRoles(ctx context.Context, user *model.User) ([]*dto.RoleItem, error) {
	db := database.DB().WithContext(ctx)

	var roles []*model.Role
	err := db.Where("user_id = ?", user.ID).
		Order("sort_order ASC, id ASC").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	items := make([]*dto.RoleItem, 0, len(roles))
	for _, r := range roles {
		items = append(items, roleToItem(r))
	}
	return items, nil
}

// DeleteRole 删除角色及其下属目标（任务保留，只解除目标关联）
func (s *PlanService) DeleteRole(ctx context.Context, user *model.User, roleID string) error {
	role, err := s.roleByPublicID(ctx, user.ID, roleID)
	if err != nil {
		return err
	}

	db := database.DB().WithContext(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		var goalIDs []int64
		if err := tx.Model(&model.Goal{}).
			Where("role_id = ?", role.ID).
			Pluck("id", &goalIDs).Error; err != nil {
			return fmt.Errorf("failed to collect goals: %w", err)
		}

		if len(goalIDs) > 0 {
			if err := tx.Model(&model.Task{}).
				Where("goal_id IN ?", goalIDs).
				Update("goal_id", nil).Error; err != nil {
				return fmt.Errorf("failed to detach tasks: %w", err)
			}
			if err := tx.Where("id IN ?", goalIDs).Delete(&model.Goal{}).Error; err != nil {
				return fmt.Errorf("failed to delete goals: %w", err)
			}
		}

		if err := tx.Delete(role).Error; err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		return nil
	})
}

// ========== 目标 ==========

// CreateGoal 在某个角色下新建目标
func (s *PlanService) CreateGoal(ctx context.Context, user *model.User, req dto.CreateGoalRequest) (*dto.GoalItem, error) {
	if req.Title == "" {
		return nil, pkgerrors.Definition{Code: "INVALID_REQUEST", Message: "Goal title is required"}
	}

	role, err := s.roleByPublicID(ctx, user.ID, req.RoleID)
	if err != nil {
		return nil, err
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate goal id: %w", err)
	}

	db := database.DB().WithContext(ctx)
	goal := model.Goal{
		UserID:   user.ID,
		RoleID:   role.ID,
		PublicID: publicID,
		Title:    req.Title,
	}
	if err := db.Create(&goal).Error; err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	return goalToItem(&goal, role.PublicID), nil
}

// ListGoals 列出角色下的目标，roleID 为空时列出全部
func (s *PlanService) ListGoals(ctx context.Context, user *model.User, roleID string) ([]*dto.GoalItem, error) {
	db := database.DB().WithContext(ctx)

	q := db.Where("user_id = ?", user.ID)
	if roleID != "" {
		role, err := s.roleByPublicID(ctx, user.ID, roleID)
		if err != nil {
			return nil, err
		}
		q = q.Where("role_id = ?", role.ID)
	}

	var goals []*model.Goal
	if err := q.Order("sort_order ASC, id ASC").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}

	rolePublicIDs, err := s.rolePublicIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.GoalItem, 0, len(goals))
	for _, g := range goals {
		items = append(items, goalToItem(g, rolePublicIDs[g.RoleID]))
	}
	return items, nil
}

// DeleteGoal 删除目标，任务保留并解除关联
func (s *PlanService) DeleteGoal(ctx context.Context, user *model.User, goalID string) error {
	goal, err := Task().goalByPublicID(ctx, user.ID, goalID)
	if err != nil {
		return err
	}

	db := database.DB().WithContext(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).
			Where("goal_id = ?", goal.ID).
			Update("goal_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach tasks: %w", err)
		}
		if err := tx.Delete(goal).Error; err != nil {
			return fmt.Errorf("failed to delete goal: %w", err)
		}
		return nil
	})
}

// ========== 周推进 ==========

// AdvanceWeek 把用户推进到下一个计划周，未完成任务顺延
// 调用方需要先过周检门禁（IsActionBlocked）
func (s *PlanService) AdvanceWeek(ctx context.Context, user *model.User) (*dto.AdvanceWeekResponse, error) {
	db := database.DB().WithContext(ctx)

	fromWeek := user.CurrentWeek
	toWeek := fromWeek + 1
	var carried int64

	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Task{}).
			Where("user_id = ?", user.ID).
			Where("week = ?", fromWeek).
			Where("completed = ?", false).
			Update("week", toWeek)
		if result.Error != nil {
			return fmt.Errorf("failed to carry tasks: %w", result.Error)
		}
		carried = result.RowsAffected

		if err := tx.Model(user).Update("current_week", toWeek).Error; err != nil {
			return fmt.Errorf("failed to advance week: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.CurrentWeek = toWeek

	logger.Logger.Info("Advanced user week",
		zap.Int64("user_id", user.PublicID),
		zap.Int("from_week", fromWeek),
		zap.Int("to_week", toWeek),
		zap.Int64("carried_tasks", carried),
	)

	// 事件发布失败不回滚，消费侧只做审计
	if err := queue.PublishWeekAdvanced(ctx, &model.WeekAdvancedMessage{
		UserID:       user.PublicID,
		FromWeek:     fromWeek,
		ToWeek:       toWeek,
		CarriedTasks: int(carried),
		AdvancedAt:   time.Now().Format(time.RFC3339),
	}); err != nil {
		logger.Logger.Warn("Failed to publish week advanced event",
			zap.Int64("user_id", user.PublicID),
			zap.Error(err),
		)
	}

	return &dto.AdvanceWeekResponse{
		FromWeek:     fromWeek,
		ToWeek:       toWeek,
		CarriedTasks: int(carried),
	}, nil
}

// AdvancerFor 返回回顾会话使用的周推进器
func (s *PlanService) AdvancerFor(user *model.User) checkin.WeekAdvancer {
	return &userWeekAdvancer{svc: s, user: user}
}

type userWeekAdvancer struct {
	svc  *PlanService
	user *model.User
}

func (a *userWeekAdvancer) AdvanceWeek(ctx context.Context) error {
	_, err := a.svc.AdvanceWeek(ctx, a.user)
	return err
}

// ========== 内部查询 ==========

func (s *PlanService) roleByPublicID(ctx context.Context, userID int64, publicID string) (*model.Role, error) {
	id, err := strconv.ParseInt(publicID, 10, 64)
	if err != nil {
		return nil, pkgerrors.RoleNotFound
	}

	db := database.DB().WithContext(ctx)
	var role model.Role
	err = db.Where("user_id = ?", userID).Where("public_id = ?", id).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.RoleNotFound
		}
		return nil, fmt.Errorf("failed to query role: %w", err)
	}
	return &role, nil
}

func (s *PlanService) rolePublicIDs(ctx context.Context, userID int64) (map[int64]int64, error) {
	db := database.DB().WithContext(ctx)

	var roles []*model.Role
	if err := db.Where("user_id = ?", userID).Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	out := make(map[int64]int64, len(roles))
	for _, r := range roles {
		out[r.ID] = r.PublicID
	}
	return out, nil
}

func roleToItem(r *model.Role) *dto.RoleItem {
	return &dto.RoleItem{
		ID:        strconv.FormatInt(r.PublicID, 10),
		Name:      r.Name,
		Color:     r.Color,
		SortOrder: r.SortOrder,
	}
}

func goalToItem(g *model.Goal, rolePublicID int64) *dto.GoalItem {
	return &dto.GoalItem{
		ID:        strconv.FormatInt(g.PublicID, 10),
		RoleID:    strconv.FormatInt(rolePublicID, 10),
		Title:     g.Title,
		SortOrder: g.SortOrder,
	}
}
