package checkin

import pkgerrors "habitus/pkg/errors"

// 业务错误直接复用全局错误码定义，handler 层据此映射 HTTP 状态
var (
	ErrPostponeBlocked     = pkgerrors.PostponeBlocked
	ErrSessionAlreadyOpen  = pkgerrors.SessionAlreadyOpen
	ErrSessionNotOpen      = pkgerrors.SessionNotOpen
	ErrSessionCloseBlocked = pkgerrors.SessionCloseBlocked
	ErrReflectionTooLong   = pkgerrors.ReflectionTooLong
	ErrTaskNotFound        = pkgerrors.TaskNotFound
)
