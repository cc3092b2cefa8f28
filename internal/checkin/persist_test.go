package checkin

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAdapter(kv KV) *Adapter {
	return NewAdapter(kv, "persist-test", zap.NewNop())
}

func TestAdapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	adapter := newTestAdapter(kv)

	last := time.Date(2024, 3, 4, 10, 30, 15, 123456789, time.UTC)
	weekStart := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	saved := &State{
		LastCheckIn:      &last,
		CurrentWeekStart: &weekStart,
		IsPending:        true,
		IsBlocking:       true,
		ReminderCount:    3,
	}
	require.NoError(t, adapter.Save(ctx, saved))

	loaded, err := adapter.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.True(t, loaded.IsPending)
	require.True(t, loaded.IsBlocking)
	require.Equal(t, 3, loaded.ReminderCount)
	require.True(t, loaded.LastCheckIn.Equal(last))
	require.True(t, loaded.CurrentWeekStart.Equal(weekStart))
}

func TestAdapterCanonicalTimestamps(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	adapter := newTestAdapter(kv)

	// 非 UTC 时区的时间也要能无损往返
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	last := time.Date(2024, 3, 4, 10, 0, 0, 0, loc)

	require.NoError(t, adapter.Save(ctx, &State{LastCheckIn: &last}))

	var blob map[string]any
	require.NoError(t, json.Unmarshal([]byte(kv.data["persist-test"]), &blob))

	raw, ok := blob["lastCheckIn"].(string)
	require.True(t, ok, "timestamps are stored as strings")
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	require.NoError(t, err, "stored timestamp must be RFC3339")
	require.True(t, parsed.Equal(last))

	// 字段名固定，换实现也不能破坏已有存量数据
	for _, key := range []string{"lastCheckIn", "currentWeekStart", "isPending", "isBlocking", "reminderCount", "isModalOpen"} {
		require.Contains(t, blob, key)
	}
}

func TestAdapterLoadMissing(t *testing.T) {
	adapter := newTestAdapter(newMemKV())

	state, err := adapter.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, state, "no stored state means a fresh start, not an error")
}

func TestAdapterLoadCorruptBlob(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data["persist-test"] = `{"isPending": tru` // 被截断的 JSON

	adapter := newTestAdapter(kv)
	state, err := adapter.Load(ctx)
	require.NoError(t, err, "corrupt data degrades to fresh state")
	require.Nil(t, state)
}

func TestAdapterLoadResetsModalFlag(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	adapter := newTestAdapter(kv)

	require.NoError(t, adapter.Save(ctx, &State{IsPending: true, IsModalOpen: true}))

	loaded, err := adapter.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.True(t, loaded.IsPending)
	require.False(t, loaded.IsModalOpen, "a modal can never survive a process restart")
}

func TestAdapterLoadUnparseableTimestamp(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data["persist-test"] = `{"lastCheckIn":"not-a-date","isPending":true}`

	adapter := newTestAdapter(kv)
	loaded, err := adapter.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Nil(t, loaded.LastCheckIn, "bad timestamp degrades to never checked in")
	require.True(t, loaded.IsPending)
}

func TestAdapterLoadPropagatesStoreError(t *testing.T) {
	kv := newMemKV()
	kv.getErr = context.DeadlineExceeded

	adapter := newTestAdapter(kv)
	_, err := adapter.Load(context.Background())
	require.Error(t, err, "a store failure is not the same as missing data")
}
