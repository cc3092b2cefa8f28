package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 用户模块错误。
var (
	UserNotFound    = Definition{Code: "USER_NOT_FOUND", Message: "User not found"}
	InvalidUserID   = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	InvalidTimezone = Definition{Code: "INVALID_TIMEZONE", Message: "Unknown IANA timezone name"}
)

// 周检（check-in）模块错误。
var (
	CheckInNotPending   = Definition{Code: "CHECK_IN_NOT_PENDING", Message: "No check-in is pending"}
	CheckInRequired     = Definition{Code: "CHECK_IN_REQUIRED", Message: "Weekly check-in required before this action"}
	PostponeBlocked     = Definition{Code: "POSTPONE_BLOCKED", Message: "Check-in is blocking and cannot be postponed"}
	SessionAlreadyOpen  = Definition{Code: "SESSION_ALREADY_OPEN", Message: "Review session already open"}
	SessionNotOpen      = Definition{Code: "SESSION_NOT_OPEN", Message: "No review session is open"}
	SessionCloseBlocked = Definition{Code: "SESSION_CLOSE_BLOCKED", Message: "Blocking review session cannot be dismissed"}
	ReflectionTooLong   = Definition{Code: "REFLECTION_TOO_LONG", Message: "Reflection text exceeds maximum length"}
)

// 计划（roles/goals/tasks）模块错误。
var (
	TaskNotFound    = Definition{Code: "TASK_NOT_FOUND", Message: "Task not found"}
	RoleNotFound    = Definition{Code: "ROLE_NOT_FOUND", Message: "Role not found"}
	GoalNotFound    = Definition{Code: "GOAL_NOT_FOUND", Message: "Goal not found"}
	InvalidQuadrant = Definition{Code: "INVALID_QUADRANT", Message: "Invalid priority quadrant"}
)

// 通知模块错误。
var (
	ReminderLimitReached = Definition{Code: "REMINDER_LIMIT_REACHED", Message: "Monthly reminder limit reached"}
)

// 通用错误。
var (
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests, slow down"}
	InternalError   = Definition{Code: "INTERNAL_ERROR", Message: "Internal server error"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	UserNotFound.Code:         UserNotFound,
	InvalidUserID.Code:        InvalidUserID,
	InvalidTimezone.Code:      InvalidTimezone,
	CheckInNotPending.Code:    CheckInNotPending,
	CheckInRequired.Code:      CheckInRequired,
	PostponeBlocked.Code:      PostponeBlocked,
	SessionAlreadyOpen.Code:   SessionAlreadyOpen,
	SessionNotOpen.Code:       SessionNotOpen,
	SessionCloseBlocked.Code:  SessionCloseBlocked,
	ReflectionTooLong.Code:    ReflectionTooLong,
	TaskNotFound.Code:         TaskNotFound,
	RoleNotFound.Code:         RoleNotFound,
	GoalNotFound.Code:         GoalNotFound,
	InvalidQuadrant.Code:      InvalidQuadrant,
	ReminderLimitReached.Code: ReminderLimitReached,
	TooManyRequests.Code:      TooManyRequests,
	InternalError.Code:        InternalError,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// SkipMessageError 表示消息应被跳过（已处理过），消费者据此 Ack 而不重试。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return e.Reason
}
