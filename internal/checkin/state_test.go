package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memKV 进程内键值存储，测试用
type memKV struct {
	data    map[string]string
	getErr  error
	setErr  error
	setHits int
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.data[key], nil
}

func (m *memKV) Set(ctx context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.setHits++
	m.data[key] = value
	return nil
}

func newTestGate(kv KV) *Gate {
	adapter := NewAdapter(kv, "gate-test", zap.NewNop())
	gate := NewGate(adapter, zap.NewNop())
	gate.Hydrate(context.Background())
	return gate
}

// 固定日期：2024-03-04 是周一
var (
	monMar4  = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	monMar11 = time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	tueMar12 = time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)
)

func TestEvaluateDueFirstRun(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate(newMemKV())

	due := gate.EvaluateDue(ctx, monMar4)

	require.False(t, due, "a brand-new user has nothing to review")
	state := gate.State()
	require.False(t, state.IsPending)
	require.False(t, state.IsBlocking)
	require.NotNil(t, state.CurrentWeekStart)
	require.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), *state.CurrentWeekStart)
}

func TestEvaluateDueSameWeekIsStable(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate(newMemKV())

	gate.EvaluateDue(ctx, monMar4)
	before := gate.State()

	// 同一周内再评估多少次都不变
	for _, at := range []time.Time{
		monMar4.Add(2 * time.Hour),
		time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC),
	} {
		due := gate.EvaluateDue(ctx, at)
		require.False(t, due)
		require.Equal(t, before, gate.State())
	}
}

func TestEvaluateDueNewWeekBecomesPending(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate(newMemKV())

	gate.EvaluateDue(ctx, monMar4)
	gate.Complete(ctx, monMar4)

	due := gate.EvaluateDue(ctx, monMar11)

	require.True(t, due)
	state := gate.State()
	require.True(t, state.IsPending)
	require.False(t, state.IsBlocking, "within the grace day the gate must not block")
	require.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), *state.CurrentWeekStart)
}

func TestEvaluateDuePastGraceBecomesBlocking(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate(newMemKV())

	gate.EvaluateDue(ctx, monMar4)
	gate.Complete(ctx, monMar4)

	// 周一没打开应用，周二才回来：已超出宽限日
	due := gate.EvaluateDue(ctx, tueMar12)

	require.True(t, due)
	state := gate.State()
	require.True(t, state.IsPending)
	require.True(t, state.IsBlocking)
}

func TestEvaluateDueSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()

	gate := newTestGate(kv)
	gate.EvaluateDue(ctx, monMar4)
	gate.Complete(ctx, monMar4)
	require.True(t, gate.EvaluateDue(ctx, monMar11))

	// 重新构建的门禁从同一存储恢复后结论一致
	reloaded := newTestGate(kv)
	state := reloaded.State()
	require.True(t, state.IsPending)
	require.True(t, reloaded.EvaluateDue(ctx, monMar11.Add(time.Hour)), "still owing the same check-in")
	require.True(t, reloaded.State().IsPending)
}

func TestPostpone(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate(newMemKV())

	gate.EvaluateDue(ctx, monMar4)
	gate.Complete(ctx, monMar4)
	gate.EvaluateDue(ctx, monMar11)

	require.NoError(t, gate.Postpone(ctx))
	require.Equal(t, 1, gate.State().ReminderCount)
	require.True(t, gate.State().IsPending, "postponing does not clear the pending check-in")

	require.NoError(t, gate.Postpone(ctx))
	require.Equal(t, 2, gate.State().ReminderCount)
}

func TestPostponeRejectedWhileBlocking(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate(newMemKV())

	gate.EvaluateDue(ctx, monMar4)
	gate.Complete(ctx, monMar4)
	gate.EvaluateDue(ctx, tueMar12)
	require.True(t, gate.State().IsBlocking)

	err := gate.Postpone(ctx)
	require.ErrorIs(t, err, ErrPostponeBlocked)
	require.Equal(t, 0, gate.State().ReminderCount)
}

func TestCompleteClearsEverything(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate(newMemKV())

	gate.EvaluateDue(ctx, monMar4)
	gate.Complete(ctx, monMar4)
	gate.EvaluateDue(ctx, tueMar12)
	require.Error(t, gate.Postpone(ctx)) // blocking, postpone fails

	gate.Complete(ctx, tueMar12)

	state := gate.State()
	require.False(t, state.IsPending)
	require.False(t, state.IsBlocking)
	require.Equal(t, 0, state.ReminderCount)
	require.NotNil(t, state.LastCheckIn)
	require.Equal(t, tueMar12, *state.LastCheckIn)
}

func TestIsActionBlocked(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate(newMemKV())

	gate.EvaluateDue(ctx, monMar4)
	gate.Complete(ctx, monMar4)

	// 未拦截时放行
	gate.EvaluateDue(ctx, monMar11)
	require.False(t, gate.IsActionBlocked(ActionAdvanceWeek))

	// 拦截后受保护操作被拒绝，未登记的操作不受影响
	gate2 := newTestGate(newMemKV())
	gate2.EvaluateDue(ctx, monMar4)
	gate2.Complete(ctx, monMar4)
	gate2.EvaluateDue(ctx, tueMar12)
	require.True(t, gate2.IsActionBlocked(ActionAdvanceWeek))
	require.False(t, gate2.IsActionBlocked("list_tasks"))
}

func TestShouldShowReminderMilestones(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate(newMemKV())

	gate.EvaluateDue(ctx, monMar4)
	gate.Complete(ctx, monMar4)
	gate.EvaluateDue(ctx, monMar11)
	require.True(t, gate.State().IsPending)

	cases := []struct {
		days int
		want bool
	}{
		{7, true},
		{8, true},
		{9, false},
		{10, true},
		{11, false},
	}
	for _, tc := range cases {
		at := monMar4.Add(time.Duration(tc.days)*24*time.Hour + time.Hour)
		require.Equal(t, tc.want, gate.ShouldShowReminder(at), "day %d", tc.days)
	}
}

func TestShouldShowReminderOnlyWhilePending(t *testing.T) {
	ctx := context.Background()
	gate := newTestGate(newMemKV())

	gate.EvaluateDue(ctx, monMar4)
	gate.Complete(ctx, monMar4)
	require.False(t, gate.ShouldShowReminder(monMar11), "not pending yet, nothing to remind")
}

func TestResetStartsFresh(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	gate := newTestGate(kv)

	gate.EvaluateDue(ctx, monMar4)
	gate.Complete(ctx, monMar4)
	gate.EvaluateDue(ctx, tueMar12)

	gate.Reset(ctx)

	require.Equal(t, State{}, gate.State())
	reloaded := newTestGate(kv)
	require.Equal(t, State{}, reloaded.State())
}

func TestPersistFailureDoesNotRollBack(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	gate := newTestGate(kv)

	gate.EvaluateDue(ctx, monMar4)
	gate.Complete(ctx, monMar4)

	kv.setErr = context.DeadlineExceeded
	due := gate.EvaluateDue(ctx, monMar11)

	require.True(t, due)
	require.True(t, gate.State().IsPending, "in-memory transition survives a failed write")
}
