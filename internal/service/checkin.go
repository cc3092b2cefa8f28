package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"habitus/internal/cache"
	"habitus/internal/checkin"
	"habitus/internal/model"
	"habitus/internal/model/dto"
	pkgerrors "habitus/pkg/errors"
	"habitus/pkg/logger"
	"habitus/pkg/metrics"
	"habitus/storage/database"
	"habitus/utils"
)

var (
	checkInService *CheckInService
	checkInOnce    sync.Once
)

func CheckIn() *CheckInService {
	checkInOnce.Do(func() {
		checkInService = &CheckInService{
			sessions: make(map[int64]*openSession),
			opening:  make(map[int64]struct{}),
		}
	})
	return checkInService
}

// CheckInService 编排周检门禁与回顾会话
// 门禁状态落 Redis，进程内只在会话存续期间持有 Gate
type CheckInService struct {
	mu       sync.Mutex
	sessions map[int64]*openSession // key: user public_id
	opening  map[int64]struct{}     // 开窗中的用户，占位防并发重复开
}

// openSession 一个用户的在途回顾会话
type openSession struct {
	id      string
	session *checkin.Session
	user    *model.User
}

// gateFor 构建并恢复某用户的门禁
func (s *CheckInService) gateFor(ctx context.Context, user *model.User) *checkin.Gate {
	adapter := checkin.NewAdapter(cache.NewStateKV(), cache.StateKey(user.PublicID), logger.Logger)
	gate := checkin.NewGate(adapter, logger.Logger)
	gate.Hydrate(ctx)
	return gate
}

// userNow now 必须落在用户时区里，周界线才按其本地日历算
func userNow(user *model.User) time.Time {
	return time.Now().In(utils.LoadLocation(user.Timezone))
}

// currentSession 取用户的在途会话；没有则返回 nil
func (s *CheckInService) currentSession(userID int64) *openSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

func (s *CheckInService) dropSession(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// beginOpen 预占某用户的开窗名额；已有在途会话或另一请求正在开窗时拒绝。
// 开窗涉及 Redis 往返，不能在锁内做，先占位再放锁
func (s *CheckInService) beginOpen(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[userID]; ok && existing.session.IsOpen() {
		return pkgerrors.SessionAlreadyOpen
	}
	if _, ok := s.opening[userID]; ok {
		return pkgerrors.SessionAlreadyOpen
	}
	s.opening[userID] = struct{}{}
	return nil
}

func (s *CheckInService) endOpen(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.opening, userID)
}

// GetStatus 评估并返回周检门禁状态
func (s *CheckInService) GetStatus(ctx context.Context, user *model.User) (*dto.CheckInStatusData, error) {
	now := userNow(user)

	var gate *checkin.Gate
	open := s.currentSession(user.PublicID)
	if open != nil {
		gate = open.session.Gate()
	} else {
		gate = s.gateFor(ctx, user)
	}

	due := gate.EvaluateDue(ctx, now)
	state := gate.State()
	metrics.GetMetrics().RecordEvaluation(ctx, due, state.IsBlocking)

	return &dto.CheckInStatusData{
		LastCheckIn:      state.LastCheckIn,
		CurrentWeekStart: state.CurrentWeekStart,
		IsPending:        state.IsPending,
		IsBlocking:       state.IsBlocking,
		ReminderCount:    state.ReminderCount,
		ShowReminder:     gate.ShouldShowReminder(now),
		SessionOpen:      open != nil && open.session.IsOpen(),
	}, nil
}

// OpenSession 打开回顾会话并返回任务快照
func (s *CheckInService) OpenSession(ctx context.Context, user *model.User) (*dto.SessionSnapshotData, error) {
	if err := s.beginOpen(user.PublicID); err != nil {
		return nil, err
	}
	defer s.endOpen(user.PublicID)

	now := userNow(user)
	gate := s.gateFor(ctx, user)
	gate.EvaluateDue(ctx, now)

	if !gate.State().IsPending {
		return nil, pkgerrors.CheckInNotPending
	}

	session := checkin.NewSession(
		gate,
		Task().CollectionFor(user, user.CurrentWeek),
		Plan().AdvancerFor(user),
		Notification().NotifierFor(user),
		s.reviewStoreFor(user, now),
		logger.Logger,
	)

	snap, err := session.Open(ctx)
	if err != nil {
		return nil, err
	}

	open := &openSession{
		id:      uuid.NewString(),
		session: session,
		user:    user,
	}
	s.mu.Lock()
	s.sessions[user.PublicID] = open
	s.mu.Unlock()

	metrics.GetMetrics().RecordSessionOpened(ctx)
	logger.Logger.Info("Opened review session",
		zap.Int64("user_id", user.PublicID),
		zap.String("session_id", open.id),
		zap.Int("total_tasks", snap.TotalCount),
		zap.Bool("blocking", gate.State().IsBlocking),
	)

	return snapshotToDTO(open, snap), nil
}

// GetSession 返回在途会话的当前快照
func (s *CheckInService) GetSession(ctx context.Context, user *model.User) (*dto.SessionSnapshotData, error) {
	open := s.currentSession(user.PublicID)
	if open == nil || !open.session.IsOpen() {
		return nil, pkgerrors.SessionNotOpen
	}
	snap := open.session.Snapshot()
	return snapshotToDTO(open, &snap), nil
}

// ToggleSessionTask 会话内勾选任务，返回更新后的快照
func (s *CheckInService) ToggleSessionTask(ctx context.Context, user *model.User, taskID string) (*dto.SessionSnapshotData, error) {
	open := s.currentSession(user.PublicID)
	if open == nil {
		return nil, pkgerrors.SessionNotOpen
	}

	if err := open.session.ToggleTask(ctx, taskID); err != nil {
		return nil, err
	}

	snap := open.session.Snapshot()
	return snapshotToDTO(open, &snap), nil
}

// PostponeSession 延后周检并关闭会话
func (s *CheckInService) PostponeSession(ctx context.Context, user *model.User) error {
	open := s.currentSession(user.PublicID)
	if open == nil {
		return pkgerrors.SessionNotOpen
	}

	duration := open.session.OpenedFor()
	if err := open.session.Postpone(ctx); err != nil {
		if errors.Is(err, checkin.ErrPostponeBlocked) {
			metrics.GetMetrics().RecordBlockedAction(ctx, "postpone")
		}
		return err
	}

	s.dropSession(user.PublicID)
	metrics.GetMetrics().RecordPostpone(ctx)
	metrics.GetMetrics().RecordSessionClosed(ctx, duration.Seconds(), "postponed")
	return nil
}

// CloseSession 关闭会话；拦截态下会被拒绝
func (s *CheckInService) CloseSession(ctx context.Context, user *model.User) error {
	open := s.currentSession(user.PublicID)
	if open == nil {
		return pkgerrors.SessionNotOpen
	}

	duration := open.session.OpenedFor()
	if err := open.session.Close(ctx); err != nil {
		if errors.Is(err, checkin.ErrSessionCloseBlocked) {
			metrics.GetMetrics().RecordBlockedAction(ctx, "close_session")
		}
		return err
	}

	s.dropSession(user.PublicID)
	metrics.GetMetrics().RecordSessionClosed(ctx, duration.Seconds(), "dismissed")
	return nil
}

// CompleteSession 完成周检：落回顾、清门禁、推进下一周
func (s *CheckInService) CompleteSession(ctx context.Context, user *model.User, reflection string) (*dto.CompleteCheckInResponse, error) {
	open := s.currentSession(user.PublicID)
	if open == nil {
		return nil, pkgerrors.SessionNotOpen
	}

	now := userNow(user)
	// AdvanceWeek 改写的是会话打开时绑定的那个 user 实例，
	// 本请求的 user 可能是另一次加载，周次必须从 open.user 读
	fromWeek := open.user.CurrentWeek
	duration := open.session.OpenedFor()

	if err := open.session.Complete(ctx, reflection, now); err != nil {
		// 校验失败时会话保持打开，可改完再提交
		return nil, err
	}

	s.dropSession(user.PublicID)
	metrics.GetMetrics().RecordCompletion(ctx, reflection != "")
	metrics.GetMetrics().RecordSessionClosed(ctx, duration.Seconds(), "completed")

	weekAdvanced := open.user.CurrentWeek > fromWeek
	logger.Logger.Info("Completed weekly check-in",
		zap.Int64("user_id", user.PublicID),
		zap.String("session_id", open.id),
		zap.Int("week", open.user.CurrentWeek),
		zap.Bool("week_advanced", weekAdvanced),
	)

	return &dto.CompleteCheckInResponse{
		CompletedAt:  now,
		Week:         open.user.CurrentWeek,
		WeekAdvanced: weekAdvanced,
	}, nil
}

// GetLastReview 最近一次周回顾
func (s *CheckInService) GetLastReview(ctx context.Context, user *model.User) (*dto.LastReviewData, error) {
	db := database.DB().WithContext(ctx)

	var review model.WeeklyReview
	err := db.Where("user_id = ?", user.ID).
		Order("completed_at DESC").
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query last review: %w", err)
	}

	return &dto.LastReviewData{
		WeekStart:   review.WeekStart.Format("2006-01-02"),
		Week:        review.Week,
		Reflection:  review.Reflection,
		TasksTotal:  review.TasksTotal,
		TasksDone:   review.TasksDone,
		CompletedAt: review.CompletedAt,
	}, nil
}

// GuardAction 破坏性操作执行前的门禁裁决
func (s *CheckInService) GuardAction(ctx context.Context, user *model.User, action string) error {
	var gate *checkin.Gate
	if open := s.currentSession(user.PublicID); open != nil {
		gate = open.session.Gate()
	} else {
		gate = s.gateFor(ctx, user)
		gate.EvaluateDue(ctx, userNow(user))
	}

	if gate.IsActionBlocked(action) {
		metrics.GetMetrics().RecordBlockedAction(ctx, action)
		return pkgerrors.CheckInRequired
	}
	return nil
}

// IsReminderStillDue 投递时刻复核：用户是否仍欠周检
func (s *CheckInService) IsReminderStillDue(ctx context.Context, user *model.User, milestoneDay int) (bool, error) {
	gate := s.gateFor(ctx, user)
	gate.EvaluateDue(ctx, userNow(user))
	return gate.State().IsPending, nil
}

// EvaluateForReminder 调度器用：评估是否到期，并返回提醒是否命中里程碑
func (s *CheckInService) EvaluateForReminder(ctx context.Context, user *model.User) (state checkin.State, showReminder bool) {
	now := userNow(user)
	gate := s.gateFor(ctx, user)
	gate.EvaluateDue(ctx, now)
	return gate.State(), gate.ShouldShowReminder(now)
}

// Reset 清空门禁状态（调试接口）
func (s *CheckInService) Reset(ctx context.Context, user *model.User) {
	s.dropSession(user.PublicID)
	gate := s.gateFor(ctx, user)
	gate.Reset(ctx)
}

// reviewStoreFor 周回顾落库，周界线取会话打开时刻所在周
func (s *CheckInService) reviewStoreFor(user *model.User, now time.Time) checkin.ReviewStore {
	return &weeklyReviewStore{user: user, weekStart: utils.WeekStart(now)}
}

type weeklyReviewStore struct {
	user      *model.User
	weekStart time.Time
}

func (r *weeklyReviewStore) SaveReview(ctx context.Context, reflection string, totalCount, completedCount int, completedAt time.Time) error {
	db := database.DB().WithContext(ctx)

	review := model.WeeklyReview{
		UserID:      r.user.ID,
		WeekStart:   r.weekStart,
		Week:        r.user.CurrentWeek,
		Reflection:  reflection,
		TasksTotal:  totalCount,
		TasksDone:   completedCount,
		CompletedAt: completedAt,
	}
	if err := db.Create(&review).Error; err != nil {
		return fmt.Errorf("failed to store weekly review: %w", err)
	}
	return nil
}

func snapshotToDTO(open *openSession, snap *checkin.Snapshot) *dto.SessionSnapshotData {
	data := &dto.SessionSnapshotData{
		SessionID:      open.id,
		TotalCount:     snap.TotalCount,
		CompletedCount: snap.CompletedCount,
		IsBlocking:     open.session.Gate().State().IsBlocking,
		PendingList:    make([]dto.SessionTaskItem, 0, len(snap.PendingList)),
	}
	for _, t := range snap.PendingList {
		data.PendingList = append(data.PendingList, dto.SessionTaskItem{
			ID:          t.ID,
			Description: t.Description,
			Quadrant:    t.Category,
		})
	}
	return data
}
