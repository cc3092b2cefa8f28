package checkin

// 周检门禁状态机：跟踪周界线，决定周检是否到期、是否进入拦截态。
// 状态只能通过本文件的迁移方法变更，外部（handler/service）一律经由访问器读取。

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"habitus/utils"
)

const (
	// WeekDays 一个计划周的天数
	WeekDays = 7
	// GraceDays 周界线之后的宽限天数，超过后进入拦截态
	GraceDays = 1

	// ActionAdvanceWeek 受门禁保护的破坏性操作：开启新的一周
	ActionAdvanceWeek = "advance_week"
)

// ReminderSchedule 提醒里程碑：距上次周检满 7/8/10 整天时各提醒一次，
// 而不是每次会话都打扰用户
var ReminderSchedule = []int{7, 8, 10}

// protectedActions 拦截态下必须拒绝的操作集合
var protectedActions = map[string]bool{
	ActionAdvanceWeek: true,
}

// State 周检门禁状态，每用户一份
// IsModalOpen 是会话期临时标记，持久化后加载时恒被重置为 false
type State struct {
	LastCheckIn      *time.Time
	CurrentWeekStart *time.Time
	IsPending        bool
	IsBlocking       bool
	ReminderCount    int
	IsModalOpen      bool
}

// Gate 封装状态与迁移规则，持久化失败只记日志，不回滚内存迁移
type Gate struct {
	state   State
	adapter *Adapter
	logger  *zap.Logger
}

func NewGate(adapter *Adapter, logger *zap.Logger) *Gate {
	return &Gate{
		adapter: adapter,
		logger:  logger,
	}
}

// Hydrate 从持久层恢复状态；没有历史状态时保持零值
func (g *Gate) Hydrate(ctx context.Context) {
	state, err := g.adapter.Load(ctx)
	if err != nil {
		g.logger.Warn("Failed to load check-in state, starting fresh", zap.Error(err))
		return
	}
	if state != nil {
		g.state = *state
	}
}

// State 返回状态副本，外部不可直接改动内部字段
func (g *Gate) State() State {
	return g.state
}

// EvaluateDue 评估 now 时刻是否欠一次周检
// now 必须携带用户时区，周界线按其本地日历的周一零点计算
func (g *Gate) EvaluateDue(ctx context.Context, now time.Time) bool {
	weekStart := utils.WeekStart(now)

	// 首次运行：记录当前周界线即可，新用户没有可回顾的内容
	if g.state.CurrentWeekStart == nil {
		g.state.CurrentWeekStart = &weekStart
		g.state.IsPending = false
		g.persist(ctx)
		return false
	}

	if weekStart.After(*g.state.CurrentWeekStart) {
		days := g.daysSinceLastCheckIn(now)

		if days >= WeekDays {
			g.state.IsPending = true
			g.state.CurrentWeekStart = &weekStart
			g.state.IsBlocking = days >= WeekDays+GraceDays
			g.persist(ctx)
			return true
		}

		// 跨周但不足 7 天：实际不可达，防御性地不做任何迁移
		return g.state.IsPending
	}

	// 仍在同一周内，不做变更
	return g.state.IsPending
}

// ShouldShowReminder 是否应展示提醒：处于待办且整日数命中里程碑
func (g *Gate) ShouldShowReminder(now time.Time) bool {
	if !g.state.IsPending {
		return false
	}

	days := g.daysSinceLastCheckIn(now)
	for _, milestone := range ReminderSchedule {
		if days == milestone {
			return true
		}
	}
	return false
}

// IsActionBlocked 拦截态下受保护操作是否应被拒绝
// 这是其他组件执行破坏性操作前唯一的裁决点
func (g *Gate) IsActionBlocked(action string) bool {
	return g.state.IsBlocking && protectedActions[action]
}

// Postpone 延后本次周检；拦截态下不允许延后
func (g *Gate) Postpone(ctx context.Context) error {
	if g.state.IsBlocking {
		return ErrPostponeBlocked
	}

	g.state.ReminderCount++
	g.persist(ctx)
	return nil
}

// Complete 完成周检，唯一能清除待办/拦截的迁移
func (g *Gate) Complete(ctx context.Context, now time.Time) {
	g.state.LastCheckIn = &now
	g.state.IsPending = false
	g.state.IsBlocking = false
	g.state.ReminderCount = 0
	g.persist(ctx)
}

// Reset 重置为全新状态（调试用途）
func (g *Gate) Reset(ctx context.Context) {
	g.state = State{}
	g.persist(ctx)
}

// daysSinceLastCheckIn 距上次周检的整日数，从未周检时视为无穷大
func (g *Gate) daysSinceLastCheckIn(now time.Time) int {
	if g.state.LastCheckIn == nil {
		return math.MaxInt32
	}
	return utils.DaysBetween(*g.state.LastCheckIn, now)
}

// markModalOpen / markModalClosed 由同包的 Session 维护会话期标记
func (g *Gate) markModalOpen(ctx context.Context) {
	g.state.IsModalOpen = true
	g.persist(ctx)
}

func (g *Gate) markModalClosed(ctx context.Context) {
	g.state.IsModalOpen = false
	g.persist(ctx)
}

// persist 写穿持久层；失败降级为日志，内存状态不回滚
// 崩溃最多丢一次迁移，下次加载后重新评估即可恢复
func (g *Gate) persist(ctx context.Context) {
	if err := g.adapter.Save(ctx, &g.state); err != nil {
		g.logger.Warn("Failed to persist check-in state", zap.Error(err))
	}
}
