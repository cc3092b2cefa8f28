package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"

	"habitus/internal/checkin"
	"habitus/internal/model"
	"habitus/internal/model/dto"
	pkgerrors "habitus/pkg/errors"
	"habitus/pkg/metrics"
	"habitus/pkg/snowflake"
	"habitus/storage/database"
)

var (
	taskService *TaskService
	taskOnce    sync.Once
)

func Task() *TaskService {
	taskOnce.Do(func() {
		taskService = &TaskService{}
	})
	return taskService
}

type TaskService struct{}

// ListTasks 按周/象限/完成状态过滤任务
func (s *TaskService) ListTasks(ctx context.Context, user *model.User, query dto.TaskListQuery) ([]*dto.TaskItem, error) {
	db := database.DB().WithContext(ctx)

	week := query.Week
	if week <= 0 {
		week = user.CurrentWeek
	}

	q := db.Where("user_id = ?", user.ID).Where("week = ?", week)
	if query.Quadrant != "" {
		if !model.ValidQuadrant(model.Quadrant(query.Quadrant)) {
			return nil, pkgerrors.InvalidQuadrant
		}
		q = q.Where("quadrant = ?", query.Quadrant)
	}
	switch query.Completed {
	case "true":
		q = q.Where("completed = ?", true)
	case "false":
		q = q.Where("completed = ?", false)
	}

	var tasks []*model.Task
	if err := q.Order("sort_order ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	goalIDs, err := s.goalPublicIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.TaskItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskToItem(t, goalIDs))
	}
	return items, nil
}

// CreateTask 新建任务，缺省落在用户当前周
func (s *TaskService) CreateTask(ctx context.Context, user *model.User, req dto.CreateTaskRequest) (*dto.TaskItem, error) {
	if req.Description == "" {
		return nil, pkgerrors.Definition{Code: "INVALID_REQUEST", Message: "Task description is required"}
	}
	quadrant := model.Quadrant(req.Quadrant)
	if req.Quadrant == "" {
		quadrant = model.QuadrantNotUrgentImportant
	} else if !model.ValidQuadrant(quadrant) {
		return nil, pkgerrors.InvalidQuadrant
	}

	db := database.DB().WithContext(ctx)

	var goalID *int64
	if req.GoalID != "" {
		goal, err := s.goalByPublicID(ctx, user.ID, req.GoalID)
		if err != nil {
			return nil, err
		}
		goalID = &goal.ID
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task id: %w", err)
	}

	week := req.Week
	if week <= 0 {
		week = user.CurrentWeek
	}

	task := model.Task{
		UserID:      user.ID,
		GoalID:      goalID,
		PublicID:    publicID,
		Description: req.Description,
		Quadrant:    quadrant,
		Week:        week,
	}
	if err := db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	goalIDs, err := s.goalPublicIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return taskToItem(&task, goalIDs), nil
}

// UpdateTask 修改任务字段
func (s *TaskService) UpdateTask(ctx context.Context, user *model.User, taskID string, req dto.UpdateTaskRequest) (*dto.TaskItem, error) {
	task, err := s.taskByPublicID(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Quadrant != nil {
		if !model.ValidQuadrant(model.Quadrant(*req.Quadrant)) {
			return nil, pkgerrors.InvalidQuadrant
		}
		updates["quadrant"] = *req.Quadrant
	}
	if req.GoalID != nil {
		if *req.GoalID == "" {
			updates["goal_id"] = nil
		} else {
			goal, err := s.goalByPublicID(ctx, user.ID, *req.GoalID)
			if err != nil {
				return nil, err
			}
			updates["goal_id"] = goal.ID
		}
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}

	if len(updates) > 0 {
		db := database.DB().WithContext(ctx)
		if err := db.Model(task).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update task: %w", err)
		}
	}

	goalIDs, err := s.goalPublicIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return taskToItem(task, goalIDs), nil
}

// DeleteTask 删除任务（软删除）
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID string) error {
	task, err := s.taskByPublicID(ctx, user.ID, taskID)
	if err != nil {
		return err
	}

	db := database.DB().WithContext(ctx)
	if err := db.Delete(task).Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// ToggleTask 翻转任务完成状态，同时维护 completed_at
func (s *TaskService) ToggleTask(ctx context.Context, user *model.User, taskID string) (*dto.TaskItem, error) {
	task, err := s.taskByPublicID(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.toggleCompletion(ctx, task); err != nil {
		return nil, err
	}

	goalIDs, err := s.goalPublicIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return taskToItem(task, goalIDs), nil
}

func (s *TaskService) toggleCompletion(ctx context.Context, task *model.Task) error {
	db := database.DB().WithContext(ctx)

	completed := !task.Completed
	updates := map[string]interface{}{"completed": completed}
	if completed {
		now := time.Now()
		updates["completed_at"] = &now
	} else {
		updates["completed_at"] = nil
	}

	if err := db.Model(task).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to toggle task: %w", err)
	}

	metrics.GetMetrics().RecordTaskToggle(ctx, completed)
	return nil
}

// CollectionFor 返回回顾会话使用的任务视图，绑定到某用户的某一周
func (s *TaskService) CollectionFor(user *model.User, week int) checkin.TaskCollection {
	return &weekTaskCollection{svc: s, user: user, week: week}
}

// weekTaskCollection 把某一周的任务暴露为回顾会话的任务集合
type weekTaskCollection struct {
	svc  *TaskService
	user *model.User
	week int
}

func (c *weekTaskCollection) GetAll(ctx context.Context) ([]checkin.Task, error) {
	db := database.DB().WithContext(ctx)

	var tasks []*model.Task
	err := db.Where("user_id = ?", c.user.ID).
		Where("week = ?", c.week).
		Order("sort_order ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load week tasks: %w", err)
	}

	out := make([]checkin.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, checkin.Task{
			ID:          strconv.FormatInt(t.PublicID, 10),
			Description: t.Description,
			Completed:   t.Completed,
			Category:    string(t.Quadrant),
		})
	}
	return out, nil
}

func (c *weekTaskCollection) ToggleComplete(ctx context.Context, id string) error {
	task, err := c.svc.taskByPublicID(ctx, c.user.ID, id)
	if err != nil {
		return err
	}
	if task.Week != c.week {
		return pkgerrors.TaskNotFound
	}
	return c.svc.toggleCompletion(ctx, task)
}

func (s *TaskService) taskByPublicID(ctx context.Context, userID int64, publicID string) (*model.Task, error) {
	id, err := strconv.ParseInt(publicID, 10, 64)
	if err != nil {
		return nil, pkgerrors.TaskNotFound
	}

	db := database.DB().WithContext(ctx)
	var task model.Task
	err = db.Where("user_id = ?", userID).Where("public_id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.TaskNotFound
		}
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return &task, nil
}

func (s *TaskService) goalByPublicID(ctx context.Context, userID int64, publicID string) (*model.Goal, error) {
	id, err := strconv.ParseInt(publicID, 10, 64)
	if err != nil {
		return nil, pkgerrors.GoalNotFound
	}

	db := database.DB().WithContext(ctx)
	var goal model.Goal
	err = db.Where("user_id = ?", userID).Where("public_id = ?", id).First(&goal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.GoalNotFound
		}
		return nil, fmt.Errorf("failed to query goal: %w", err)
	}
	return &goal, nil
}

// goalPublicIDs 构建 goals.id -> public_id 映射，避免逐任务查询
func (s *TaskService) goalPublicIDs(ctx context.Context, userID int64) (map[int64]int64, error) {
	db := database.DB().WithContext(ctx)

	var goals []*model.Goal
	if err := db.Where("user_id = ?", userID).Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}

	out := make(map[int64]int64, len(goals))
	for _, g := range goals {
		out[g.ID] = g.PublicID
	}
	return out, nil
}

func taskToItem(t *model.Task, goalIDs map[int64]int64) *dto.TaskItem {
	item := &dto.TaskItem{
		ID:          strconv.FormatInt(t.PublicID, 10),
		Description: t.Description,
		Quadrant:    string(t.Quadrant),
		Week:        t.Week,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		SortOrder:   t.SortOrder,
	}
	if t.GoalID != nil {
		if pub, ok := goalIDs[*t.GoalID]; ok {
			item.GoalID = strconv.FormatInt(pub, 10)
		}
	}
	return item
}
