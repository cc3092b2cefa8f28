package checkin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ========== 协作方假实现 ==========

type fakeTasks struct {
	items     []Task
	toggleErr error
	toggled   []string
}

func (f *fakeTasks) GetAll(ctx context.Context) ([]Task, error) {
	out := make([]Task, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeTasks) ToggleComplete(ctx context.Context, id string) error {
	if f.toggleErr != nil {
		return f.toggleErr
	}
	f.toggled = append(f.toggled, id)
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Completed = !f.items[i].Completed
		}
	}
	return nil
}

type fakeAdvancer struct {
	err   error
	calls int
}

func (f *fakeAdvancer) AdvanceWeek(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeNotifier struct {
	messages   []string
	severities []string
}

func (f *fakeNotifier) Notify(ctx context.Context, message, severity string) {
	f.messages = append(f.messages, message)
	f.severities = append(f.severities, severity)
}

type fakeReviews struct {
	err        error
	reflection string
	total      int
	done       int
	saves      int
}

func (f *fakeReviews) SaveReview(ctx context.Context, reflection string, totalCount, completedCount int, completedAt time.Time) error {
	f.saves++
	if f.err != nil {
		return f.err
	}
	f.reflection = reflection
	f.total = totalCount
	f.done = completedCount
	return nil
}

type sessionFixture struct {
	session  *Session
	gate     *Gate
	tasks    *fakeTasks
	advancer *fakeAdvancer
	notifier *fakeNotifier
	reviews  *fakeReviews
}

func newSessionFixture(t *testing.T, pending, blocking bool) *sessionFixture {
	t.Helper()
	ctx := context.Background()

	kv := newMemKV()
	adapter := NewAdapter(kv, "session-test", zap.NewNop())
	last := monMar4
	weekStart := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	require.NoError(t, adapter.Save(ctx, &State{
		LastCheckIn:      &last,
		CurrentWeekStart: &weekStart,
		IsPending:        pending,
		IsBlocking:       blocking,
	}))

	gate := NewGate(adapter, zap.NewNop())
	gate.Hydrate(ctx)

	f := &sessionFixture{
		gate: gate,
		tasks: &fakeTasks{items: []Task{
			{ID: "t1", Description: "write weekly report", Category: "q2"},
			{ID: "t2", Description: "book dentist", Category: "q1", Completed: true},
			{ID: "t3", Description: "call parents", Category: "q2"},
		}},
		advancer: &fakeAdvancer{},
		notifier: &fakeNotifier{},
		reviews:  &fakeReviews{},
	}
	f.session = NewSession(gate, f.tasks, f.advancer, f.notifier, f.reviews, zap.NewNop())
	return f
}

// ========== Open ==========

func TestSessionOpenSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)

	snap, err := f.session.Open(ctx)
	require.NoError(t, err)
	require.True(t, f.session.IsOpen())

	require.Equal(t, 3, snap.TotalCount)
	require.Equal(t, 1, snap.CompletedCount)
	require.Len(t, snap.PendingList, 2)
	require.Equal(t, "t1", snap.PendingList[0].ID)
	require.Equal(t, "t3", snap.PendingList[1].ID)
}

func TestSessionOpenTwiceRejected(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)

	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	_, err = f.session.Open(ctx)
	require.ErrorIs(t, err, ErrSessionAlreadyOpen)
}

// ========== ToggleTask ==========

func TestSessionToggleTaskReconcilesSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	require.NoError(t, f.session.ToggleTask(ctx, "t1"))
	require.Equal(t, []string{"t1"}, f.tasks.toggled)

	snap := f.session.Snapshot()
	require.Equal(t, 2, snap.CompletedCount)
	require.Len(t, snap.PendingList, 1)
	require.Equal(t, "t3", snap.PendingList[0].ID)

	// 再勾回去
	require.NoError(t, f.session.ToggleTask(ctx, "t1"))
	snap = f.session.Snapshot()
	require.Equal(t, 1, snap.CompletedCount)
	require.Len(t, snap.PendingList, 2)
}

func TestSessionToggleUnknownTask(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	err = f.session.ToggleTask(ctx, "nope")
	require.ErrorIs(t, err, ErrTaskNotFound)
	require.Empty(t, f.tasks.toggled)
}

func TestSessionToggleRequiresOpenSession(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)

	err := f.session.ToggleTask(ctx, "t1")
	require.ErrorIs(t, err, ErrSessionNotOpen)
}

func TestSessionToggleFailureKeepsMirror(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	f.tasks.toggleErr = errors.New("db down")
	err = f.session.ToggleTask(ctx, "t1")
	require.Error(t, err)

	// 外部集合没改成，镜像也不能改
	snap := f.session.Snapshot()
	require.Equal(t, 1, snap.CompletedCount)
	require.Len(t, snap.PendingList, 2)
}

// ========== Close / Postpone ==========

func TestSessionClose(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	require.NoError(t, f.session.Close(ctx))
	require.False(t, f.session.IsOpen())
}

func TestSessionCloseRejectedWhileBlocking(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, true)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	err = f.session.Close(ctx)
	require.ErrorIs(t, err, ErrSessionCloseBlocked)
	require.True(t, f.session.IsOpen(), "a blocking review cannot be dismissed")
}

func TestSessionPostpone(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	require.NoError(t, f.session.Postpone(ctx))
	require.False(t, f.session.IsOpen())
	require.Equal(t, 1, f.gate.State().ReminderCount)
	require.Contains(t, f.notifier.severities, "info")
}

func TestSessionPostponeRejectedWhileBlocking(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, true)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	err = f.session.Postpone(ctx)
	require.ErrorIs(t, err, ErrPostponeBlocked)
	require.True(t, f.session.IsOpen())
}

// ========== Complete ==========

func TestSessionComplete(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	require.NoError(t, f.session.ToggleTask(ctx, "t1"))

	now := time.Date(2024, 3, 11, 18, 0, 0, 0, time.UTC)
	require.NoError(t, f.session.Complete(ctx, "good week overall", now))

	require.False(t, f.session.IsOpen())
	state := f.gate.State()
	require.False(t, state.IsPending)
	require.False(t, state.IsBlocking)
	require.Equal(t, 0, state.ReminderCount)
	require.True(t, state.LastCheckIn.Equal(now))

	require.Equal(t, 1, f.advancer.calls)
	require.Equal(t, "good week overall", f.reviews.reflection)
	require.Equal(t, 3, f.reviews.total)
	require.Equal(t, 2, f.reviews.done)
	require.Contains(t, f.notifier.severities, "success")
}

func TestSessionCompleteEmptyReflection(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	// 反思可选，空文本照常完成
	require.NoError(t, f.session.Complete(ctx, "", monMar11))
	require.False(t, f.session.IsOpen())
	require.Equal(t, 1, f.reviews.saves)
}

func TestSessionCompleteReflectionTooLong(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	err = f.session.Complete(ctx, strings.Repeat("a", DefaultMaxReflectionLen+1), monMar11)
	require.ErrorIs(t, err, ErrReflectionTooLong)

	// 校验失败时会话保持打开，改完可以重新提交
	require.True(t, f.session.IsOpen())
	require.True(t, f.gate.State().IsPending)
	require.Equal(t, 0, f.advancer.calls)
	require.Equal(t, 0, f.reviews.saves)
}

func TestSessionCompleteReflectionLengthIsRuneCount(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	// 多字节字符按字符数计，不按字节数
	require.NoError(t, f.session.Complete(ctx, strings.Repeat("周", DefaultMaxReflectionLen), monMar11))
}

func TestSessionCompleteAdvanceFailureKeepsCheckIn(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	f.advancer.err = errors.New("broker unavailable")
	require.NoError(t, f.session.Complete(ctx, "still fine", monMar11))

	// 周检记录不因副作用失败而回滚
	require.False(t, f.gate.State().IsPending)
	require.False(t, f.session.IsOpen())
	require.Contains(t, f.notifier.severities, "warning")
}

func TestSessionCompleteReviewStoreFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	f.reviews.err = errors.New("insert failed")
	require.NoError(t, f.session.Complete(ctx, "fine", monMar11))
	require.False(t, f.gate.State().IsPending)
}

func TestSessionCompleteIsTheOnlyWayOutOfBlocking(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, true)
	_, err := f.session.Open(ctx)
	require.NoError(t, err)

	require.ErrorIs(t, f.session.Close(ctx), ErrSessionCloseBlocked)
	require.ErrorIs(t, f.session.Postpone(ctx), ErrPostponeBlocked)

	require.NoError(t, f.session.Complete(ctx, "", monMar11))
	require.False(t, f.session.IsOpen())
	require.False(t, f.gate.State().IsBlocking)
}

func TestSessionCompleteRequiresOpenSession(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, true, false)

	err := f.session.Complete(ctx, "x", monMar11)
	require.ErrorIs(t, err, ErrSessionNotOpen)
}
