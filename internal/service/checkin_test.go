package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitus/internal/cache"
	"habitus/internal/checkin"
	"habitus/internal/model"
	pkgerrors "habitus/pkg/errors"
	"habitus/pkg/logger"
	"habitus/utils"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()
	os.Exit(m.Run())
}

// memStateKV 进程内 KV，替代 redis 后端
type memStateKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStateKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memStateKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// boundAdvancer 和 AdvancerFor 一样绑定具体的 user 实例
type boundAdvancer struct {
	user *model.User
	err  error
}

func (a *boundAdvancer) AdvanceWeek(ctx context.Context) error {
	if a.err != nil {
		return a.err
	}
	a.user.CurrentWeek++
	return nil
}

type stubTasks struct{ items []checkin.Task }

func (s stubTasks) GetAll(ctx context.Context) ([]checkin.Task, error) { return s.items, nil }

func (s stubTasks) ToggleComplete(ctx context.Context, id string) error { return nil }

type stubNotifier struct{}

func (stubNotifier) Notify(ctx context.Context, message string, severity string) {}

type stubReviews struct{}

func (stubReviews) SaveReview(ctx context.Context, reflection string, totalCount, completedCount int, completedAt time.Time) error {
	return nil
}

func newCheckInRegistry() *CheckInService {
	return &CheckInService{
		sessions: make(map[int64]*openSession),
		opening:  make(map[int64]struct{}),
	}
}

// openFixtureSession 在注册表里放一个已打开的回顾会话，门禁处于待办态
func openFixtureSession(t *testing.T, svc *CheckInService, user *model.User, advancer checkin.WeekAdvancer) *openSession {
	t.Helper()
	ctx := context.Background()

	adapter := checkin.NewAdapter(&memStateKV{data: make(map[string]string)}, cache.StateKey(user.PublicID), logger.Logger)
	last := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	weekStart := utils.WeekStart(last)
	require.NoError(t, adapter.Save(ctx, &checkin.State{
		LastCheckIn:      &last,
		CurrentWeekStart: &weekStart,
		IsPending:        true,
	}))

	gate := checkin.NewGate(adapter, logger.Logger)
	gate.Hydrate(ctx)

	sess := checkin.NewSession(gate, stubTasks{items: []checkin.Task{
		{ID: "1", Description: "write report", Completed: true},
		{ID: "2", Description: "plan sprint"},
	}}, advancer, stubNotifier{}, stubReviews{}, logger.Logger)
	_, err := sess.Open(ctx)
	require.NoError(t, err)

	open := &openSession{id: "session-1", session: sess, user: user}
	svc.sessions[user.PublicID] = open
	return open
}

func TestCompleteSessionReportsAdvanceAcrossRequests(t *testing.T) {
	svc := newCheckInRegistry()
	sessionUser := &model.User{PublicID: 42, Timezone: "UTC", CurrentWeek: 5}
	openFixtureSession(t, svc, sessionUser, &boundAdvancer{user: sessionUser})

	// 完成请求加载的是同一用户的另一份实例，周推进改写的却是会话里那份
	requestUser := &model.User{PublicID: 42, Timezone: "UTC", CurrentWeek: 5}

	resp, err := svc.CompleteSession(context.Background(), requestUser, "good week")
	require.NoError(t, err)
	require.True(t, resp.WeekAdvanced)
	require.Equal(t, 6, resp.Week)
	require.Nil(t, svc.currentSession(42))
}

func TestCompleteSessionAdvanceFailureKeepsWeek(t *testing.T) {
	svc := newCheckInRegistry()
	sessionUser := &model.User{PublicID: 42, Timezone: "UTC", CurrentWeek: 5}
	openFixtureSession(t, svc, sessionUser, &boundAdvancer{user: sessionUser, err: errors.New("db down")})

	resp, err := svc.CompleteSession(context.Background(), &model.User{PublicID: 42, Timezone: "UTC", CurrentWeek: 5}, "")
	require.NoError(t, err)
	require.False(t, resp.WeekAdvanced)
	require.Equal(t, 5, resp.Week)
}

func TestBeginOpenRejectsSecondAttempt(t *testing.T) {
	svc := newCheckInRegistry()

	require.NoError(t, svc.beginOpen(7))
	require.ErrorIs(t, svc.beginOpen(7), pkgerrors.SessionAlreadyOpen)

	// 另一个用户不受影响
	require.NoError(t, svc.beginOpen(8))

	// 开窗流程结束后名额释放
	svc.endOpen(7)
	require.NoError(t, svc.beginOpen(7))
}

func TestBeginOpenRejectsWhileSessionOpen(t *testing.T) {
	svc := newCheckInRegistry()
	user := &model.User{PublicID: 42, Timezone: "UTC", CurrentWeek: 5}
	openFixtureSession(t, svc, user, &boundAdvancer{user: user})

	require.ErrorIs(t, svc.beginOpen(user.PublicID), pkgerrors.SessionAlreadyOpen)

	svc.dropSession(user.PublicID)
	require.NoError(t, svc.beginOpen(user.PublicID))
}

func TestBeginOpenConcurrentSingleWinner(t *testing.T) {
	svc := newCheckInRegistry()

	var wg sync.WaitGroup
	var winners int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.beginOpen(7) == nil {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, winners)
}
