package checkin

// 回顾会话控制器：一次周检从打开回顾界面到确认完成的完整生命周期。
// 会话期间允许用户就地勾选任务，快照增量对账而不整体重拉。

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultMaxReflectionLen 反思文本默认上限（字符数）
const DefaultMaxReflectionLen = 2000

// Task 外部任务集合中的一项
type Task struct {
	ID          string
	Description string
	Completed   bool
	Category    string
}

// TaskCollection 外部任务集合契约，会话只通过 ToggleComplete 变更它
type TaskCollection interface {
	GetAll(ctx context.Context) ([]Task, error)
	ToggleComplete(ctx context.Context, id string) error
}

// WeekAdvancer 周推进副作用，周检确认成功后调用一次
type WeekAdvancer interface {
	AdvanceWeek(ctx context.Context) error
}

// Notifier 通知出口，仅用于用户体验，不参与正确性
type Notifier interface {
	Notify(ctx context.Context, message string, severity string)
}

// ReviewStore 周回顾落库契约（"上次回顾"文本，独立于门禁状态）
type ReviewStore interface {
	SaveReview(ctx context.Context, reflection string, totalCount, completedCount int, completedAt time.Time) error
}

// Snapshot 会话打开时对任务集合的一次性读取视图
type Snapshot struct {
	TotalCount     int
	CompletedCount int
	PendingList    []Task
}

// Session 一次回顾会话；同一门禁同时至多一个打开的会话
type Session struct {
	gate     *Gate
	tasks    TaskCollection
	advancer WeekAdvancer
	notifier Notifier
	reviews  ReviewStore
	logger   *zap.Logger

	// 会话内任务镜像，按打开时顺序保存，增量对账用
	items    []Task
	openedAt time.Time

	MaxReflectionLen int
}

func NewSession(
	gate *Gate,
	tasks TaskCollection,
	advancer WeekAdvancer,
	notifier Notifier,
	reviews ReviewStore,
	logger *zap.Logger,
) *Session {
	return &Session{
		gate:             gate,
		tasks:            tasks,
		advancer:         advancer,
		notifier:         notifier,
		reviews:          reviews,
		logger:           logger,
		MaxReflectionLen: DefaultMaxReflectionLen,
	}
}

// Gate 暴露底层门禁的只读入口
func (s *Session) Gate() *Gate {
	return s.gate
}

// IsOpen 会话是否处于打开态
func (s *Session) IsOpen() bool {
	return s.gate.State().IsModalOpen
}

// Open 打开会话并拍摄任务快照；已打开时拒绝（至多一个会话）
func (s *Session) Open(ctx context.Context) (*Snapshot, error) {
	if s.IsOpen() {
		return nil, ErrSessionAlreadyOpen
	}

	all, err := s.tasks.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	s.items = make([]Task, len(all))
	copy(s.items, all)
	s.openedAt = time.Now()

	s.gate.markModalOpen(ctx)

	snap := s.Snapshot()
	return &snap, nil
}

// Snapshot 从会话镜像计算当前视图
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{TotalCount: len(s.items)}
	for _, item := range s.items {
		if item.Completed {
			snap.CompletedCount++
		} else {
			snap.PendingList = append(snap.PendingList, item)
		}
	}
	return snap
}

// ToggleTask 会话内勾选/取消勾选任务
// 先委托外部集合，成功后才更新镜像；失败时镜像保持原样
func (s *Session) ToggleTask(ctx context.Context, id string) error {
	if !s.IsOpen() {
		return ErrSessionNotOpen
	}

	idx := -1
	for i := range s.items {
		if s.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrTaskNotFound
	}

	if err := s.tasks.ToggleComplete(ctx, id); err != nil {
		s.logger.Warn("Task toggle failed, reverting session view",
			zap.String("task_id", id),
			zap.Error(err),
		)
		return err
	}

	s.items[idx].Completed = !s.items[idx].Completed
	return nil
}

// Close 关闭会话，丢弃快照
// 拦截态下关闭被拒绝：强制回顾不能被任何手势绕过，包括编程调用
func (s *Session) Close(ctx context.Context) error {
	if !s.IsOpen() {
		return ErrSessionNotOpen
	}
	if s.gate.State().IsBlocking {
		return ErrSessionCloseBlocked
	}

	s.gate.markModalClosed(ctx)
	return nil
}

// Postpone 延后周检并关闭会话；拦截态在本层再次校验
func (s *Session) Postpone(ctx context.Context) error {
	if !s.IsOpen() {
		return ErrSessionNotOpen
	}

	if err := s.gate.Postpone(ctx); err != nil {
		return err
	}

	s.gate.markModalClosed(ctx)
	s.notifier.Notify(ctx, "Check-in postponed, we'll remind you again", "info")
	return nil
}

// Complete 校验反思文本并提交周检
// 校验失败时会话保持打开；周推进副作用失败不回滚周检记录，
// 只通知用户稍后手动重试——周检记录比副作用更重要
func (s *Session) Complete(ctx context.Context, reflection string, now time.Time) error {
	if !s.IsOpen() {
		return ErrSessionNotOpen
	}

	// 反思可为空（周检必做，反思可选），超长则拒绝
	if utf8.RuneCountInString(reflection) > s.MaxReflectionLen {
		return ErrReflectionTooLong
	}

	snap := s.Snapshot()
	if err := s.reviews.SaveReview(ctx, reflection, snap.TotalCount, snap.CompletedCount, now); err != nil {
		s.logger.Warn("Failed to store weekly review text", zap.Error(err))
	}

	s.gate.Complete(ctx, now)
	s.gate.markModalClosed(ctx)

	if err := s.advancer.AdvanceWeek(ctx); err != nil {
		s.logger.Error("Week advance failed after check-in completion", zap.Error(err))
		s.notifier.Notify(ctx, "Check-in saved, but starting the new week failed. Please retry it manually.", "warning")
		return nil
	}

	s.notifier.Notify(ctx, "Weekly check-in completed", "success")
	return nil
}

// OpenedFor 会话已打开的时长，指标用
func (s *Session) OpenedFor() time.Duration {
	if s.openedAt.IsZero() {
		return 0
	}
	return time.Since(s.openedAt)
}
