package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"habitus/config"
	"habitus/internal/schedule"
	"habitus/pkg/logger"
	"habitus/pkg/metrics"
	"habitus/pkg/snowflake"
	"habitus/storage"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Warn("Failed to initialize check-in metrics", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", "habitus-scheduler"),
		zap.String("environment", config.Cfg.Environment),
	)

	runReminderSweepLoop(ctx)

	logger.Logger.Info("Scheduler service shutting down gracefully")
}

// runReminderSweepLoop 每天固定时间执行一次提醒扫描
// development 环境下为了方便本地调试改为每分钟一次
func runReminderSweepLoop(ctx context.Context) {
	if config.Cfg.IsDevelopment() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		logger.Logger.Info("Reminder sweep running in development mode with 1m interval")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runSweep(ctx)
			}
		}
	}

	for {
		// 计算下一次运行时间（今天/明天的 SCHEDULER_SWEEP_HOUR 点整）
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), config.Cfg.SchedulerSweepHour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}

		delay := time.Until(next)
		logger.Logger.Info("Scheduled next reminder sweep",
			zap.Time("now", now),
			zap.Time("next_run", next),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			runSweep(ctx)
		}
	}
}

func runSweep(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if err := schedule.WeeklySweep(runCtx); err != nil {
		logger.Logger.Error("Reminder sweep failed", zap.Error(err))
	}
}
