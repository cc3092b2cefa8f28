package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics 周检门禁相关指标集合
type OTelMetrics struct {
	// 周检状态机指标
	EvaluationsTotal metric.Int64Counter
	CompletionsTotal metric.Int64Counter
	PostponesTotal   metric.Int64Counter
	BlockedActions   metric.Int64Counter

	// 回顾会话指标
	SessionsOpen    metric.Int64UpDownCounter
	SessionDuration metric.Float64Histogram
	TaskToggles     metric.Int64Counter

	// 提醒投递指标
	RemindersPublished metric.Int64Counter
	RemindersDelivered metric.Int64Counter
}

var (
	// 全局指标实例
	metrics *OTelMetrics
	// meter 用于创建指标
	meter = otel.Meter("habitus")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	metrics = &OTelMetrics{}

	metrics.EvaluationsTotal, err = meter.Int64Counter(
		"checkin_evaluations_total",
		metric.WithDescription("Total number of check-in due evaluations"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return err
	}

	metrics.CompletionsTotal, err = meter.Int64Counter(
		"checkin_completions_total",
		metric.WithDescription("Total number of completed weekly check-ins"),
		metric.WithUnit("{checkin}"),
	)
	if err != nil {
		return err
	}

	metrics.PostponesTotal, err = meter.Int64Counter(
		"checkin_postpones_total",
		metric.WithDescription("Total number of postponed check-ins"),
		metric.WithUnit("{postpone}"),
	)
	if err != nil {
		return err
	}

	metrics.BlockedActions, err = meter.Int64Counter(
		"checkin_blocked_actions_total",
		metric.WithDescription("Total number of protected actions refused while blocking"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return err
	}

	metrics.SessionsOpen, err = meter.Int64UpDownCounter(
		"review_sessions_open",
		metric.WithDescription("Number of currently open review sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return err
	}

	metrics.SessionDuration, err = meter.Float64Histogram(
		"review_session_duration_seconds",
		metric.WithDescription("Time a review session stayed open"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.TaskToggles, err = meter.Int64Counter(
		"review_task_toggles_total",
		metric.WithDescription("Total number of task completion toggles inside review sessions"),
		metric.WithUnit("{toggle}"),
	)
	if err != nil {
		return err
	}

	metrics.RemindersPublished, err = meter.Int64Counter(
		"checkin_reminders_published_total",
		metric.WithDescription("Total number of reminder messages published"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	metrics.RemindersDelivered, err = meter.Int64Counter(
		"checkin_reminders_delivered_total",
		metric.WithDescription("Total number of reminder notifications delivered"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetMetrics 获取全局指标实例，未初始化时返回 nil，调用方需判空
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordEvaluation 记录一次周检评估
func (m *OTelMetrics) RecordEvaluation(ctx context.Context, due, blocking bool) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("due", due),
		attribute.Bool("blocking", blocking),
	))
}

// RecordCompletion 记录一次周检完成
func (m *OTelMetrics) RecordCompletion(ctx context.Context, hadReflection bool) {
	if m == nil {
		return
	}
	m.CompletionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("with_reflection", hadReflection),
	))
}

// RecordPostpone 记录一次延后
func (m *OTelMetrics) RecordPostpone(ctx context.Context) {
	if m == nil {
		return
	}
	m.PostponesTotal.Add(ctx, 1)
}

// RecordBlockedAction 记录一次被门禁拒绝的受保护操作
func (m *OTelMetrics) RecordBlockedAction(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.BlockedActions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
	))
}

// RecordSessionOpened 记录回顾会话打开
func (m *OTelMetrics) RecordSessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionsOpen.Add(ctx, 1)
}

// RecordSessionClosed 记录回顾会话结束及其持续时长
func (m *OTelMetrics) RecordSessionClosed(ctx context.Context, seconds float64, outcome string) {
	if m == nil {
		return
	}
	m.SessionsOpen.Add(ctx, -1)
	m.SessionDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordTaskToggle 记录会话内任务勾选
func (m *OTelMetrics) RecordTaskToggle(ctx context.Context, completed bool) {
	if m == nil {
		return
	}
	m.TaskToggles.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("completed", completed),
	))
}

// RecordReminderPublished 记录提醒消息投递
func (m *OTelMetrics) RecordReminderPublished(ctx context.Context, day int) {
	if m == nil {
		return
	}
	m.RemindersPublished.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("milestone_day", day),
	))
}

// RecordReminderDelivered 记录提醒通知送达
func (m *OTelMetrics) RecordReminderDelivered(ctx context.Context) {
	if m == nil {
		return
	}
	m.RemindersDelivered.Add(ctx, 1)
}
