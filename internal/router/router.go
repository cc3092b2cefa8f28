package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"habitus/config"
	"habitus/internal/handler"
	"habitus/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	v1 := h.Group("/v1")
	v1.Use(middleware.UserIdentityMiddleware())
	v1.Use(middleware.GeneralRateLimitMiddleware())

	// 用户相关路由
	users := v1.Group("/users")
	{
		users.GET("/me", handler.GetUserProfile)
		users.PUT("/me/settings", middleware.SettingsRateLimitMiddleware(), handler.UpdateUserSettings)
	}

	// 周检门禁与回顾会话
	checkIns := v1.Group("/check-ins")
	{
		checkIns.GET("/status", handler.GetCheckInStatus)
		checkIns.GET("/last-review", handler.GetLastReview)

		checkIns.POST("/session", handler.OpenReviewSession)
		checkIns.GET("/session", handler.GetReviewSession)
		checkIns.DELETE("/session", handler.CloseReviewSession)
		checkIns.POST("/session/tasks/:task_id/toggle", handler.ToggleSessionTask)
		checkIns.POST("/session/postpone", handler.PostponeCheckIn)
		checkIns.POST("/session/complete", handler.CompleteCheckIn)

		if config.Cfg.IsDevelopment() {
			checkIns.POST("/reset", handler.ResetCheckInState)
		}
	}

	// 计划层级：角色 -> 目标 -> 任务
	roles := v1.Group("/roles")
	{
		roles.GET("", handler.ListRoles)
		roles.POST("", handler.CreateRole)
		roles.DELETE("/:role_id", handler.DeleteRole)
	}

	goals := v1.Group("/goals")
	{
		goals.GET("", handler.ListGoals)
		goals.POST("", handler.CreateGoal)
		goals.DELETE("/:goal_id", handler.DeleteGoal)
	}

	tasks := v1.Group("/tasks")
	{
		tasks.GET("", handler.ListTasks)
		tasks.POST("", handler.CreateTask)
		tasks.PATCH("/:task_id", handler.UpdateTask)
		tasks.DELETE("/:task_id", handler.DeleteTask)
		tasks.POST("/:task_id/toggle", handler.ToggleTask)
	}

	// 周推进（受周检门禁保护）
	weeks := v1.Group("/weeks")
	{
		weeks.POST("/advance", handler.AdvanceWeek)
	}

	// 通知
	notifications := v1.Group("/notifications")
	{
		notifications.GET("", handler.ListNotifications)
		notifications.POST("/read", handler.MarkNotificationsRead)
	}
}
