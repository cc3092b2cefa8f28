package checkin

// 持久化适配器：把门禁状态编成 JSON 存入键值存储，读取时复原。
// 具体存储（redis、本地文件）由 KV 接口解耦。

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// KV 键值存储契约；Get 未命中时返回空串且无错误
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// persistedState 落盘结构
// isModalOpen 虽然参与编码，但加载时恒被重置，见 Load
type persistedState struct {
	LastCheckIn      *string `json:"lastCheckIn"`
	CurrentWeekStart *string `json:"currentWeekStart"`
	IsPending        bool    `json:"isPending"`
	IsBlocking       bool    `json:"isBlocking"`
	ReminderCount    int     `json:"reminderCount"`
	IsModalOpen      bool    `json:"isModalOpen"`
}

// Adapter 绑定一个存储键的状态读写器
type Adapter struct {
	kv     KV
	key    string
	logger *zap.Logger
}

func NewAdapter(kv KV, key string, logger *zap.Logger) *Adapter {
	return &Adapter{
		kv:     kv,
		key:    key,
		logger: logger,
	}
}

// Save 序列化并写入；时间字段统一走 canonicalTimestamp 归一为 RFC3339
func (a *Adapter) Save(ctx context.Context, state *State) error {
	blob := persistedState{
		LastCheckIn:      canonicalTimestamp(state.LastCheckIn),
		CurrentWeekStart: canonicalTimestamp(state.CurrentWeekStart),
		IsPending:        state.IsPending,
		IsBlocking:       state.IsBlocking,
		ReminderCount:    state.ReminderCount,
		IsModalOpen:      state.IsModalOpen,
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return err
	}

	return a.kv.Set(ctx, a.key, string(data))
}

// Load 读取并复原状态
// 缺失返回 (nil, nil)；损坏的数据按无历史处理并记日志，不向上抛错
// isModalOpen 无条件重置为 false：弹窗不可能跨进程存活，
// 否则一次会话中途崩溃会让弹窗永久卡在打开态
func (a *Adapter) Load(ctx context.Context) (*State, error) {
	raw, err := a.kv.Get(ctx, a.key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	var blob persistedState
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		a.logger.Warn("Corrupt check-in state blob, treating as fresh",
			zap.String("key", a.key),
			zap.Error(err),
		)
		return nil, nil
	}

	state := &State{
		IsPending:     blob.IsPending,
		IsBlocking:    blob.IsBlocking,
		ReminderCount: blob.ReminderCount,
		IsModalOpen:   false,
	}

	state.LastCheckIn = reviveTimestamp(blob.LastCheckIn, a.logger)
	state.CurrentWeekStart = reviveTimestamp(blob.CurrentWeekStart, a.logger)

	return state, nil
}

// canonicalTimestamp 时间出口的唯一归一路径，避免重载时表示歧义
func canonicalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}

func reviveTimestamp(s *string, logger *zap.Logger) *time.Time {
	if s == nil || *s == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		logger.Warn("Failed to revive timestamp from check-in state", zap.String("value", *s), zap.Error(err))
		return nil
	}
	return &t
}
