package goSession

import (
	"context"
	"errors"

	"github.com/zyraxfit/goSession/api"
	"github.com/zyraxfit/goSession/internal/audit"
	"github.com/zyraxfit/goSession/refresh"
)

const (
	auditEventLoginSuccess    = "login_success"
	auditEventLoginFailure    = "login_failure"
	auditEventLogout          = "logout"
	auditEventRefreshSuccess  = "refresh_success"
	auditEventRefreshFailure  = "refresh_failure"
	auditEventSessionExpired  = "session_expired"
	auditEventSessionRestored = "session_restored"
)

// AuditErrorCode is the stable error classification recorded on failed events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrDeviceLimit        AuditErrorCode = "device_limit"
	auditErrNoTokens           AuditErrorCode = "no_tokens"
	auditErrMissingToken       AuditErrorCode = "missing_refresh_token"
	auditErrRefreshRejected    AuditErrorCode = "refresh_rejected"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrStoreUnavailable   AuditErrorCode = "store_unavailable"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrTimeout            AuditErrorCode = "timeout"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	username string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := audit.Event{
		EventType: eventType,
		Actor:     string(e.config.Actor),
		Username:  username,
		Success:   success,
		Metadata:  metadata,
	}
	if id, ok := api.RequestID(ctx); ok {
		event.RequestID = id
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var loginErr *LoginError
	var rejected *refresh.RejectedError

	switch {
	case errors.Is(err, ErrDeviceLimit):
		return auditErrDeviceLimit
	case errors.As(err, &loginErr):
		if loginErr.StatusCode == 0 {
			return auditErrUnavailable
		}
		return auditErrInvalidCredentials
	case errors.Is(err, ErrNoTokens):
		return auditErrNoTokens
	case errors.Is(err, ErrMissingToken):
		return auditErrMissingToken
	case errors.As(err, &rejected):
		return auditErrRefreshRejected
	case errors.Is(err, errTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, context.DeadlineExceeded):
		return auditErrTimeout
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	default:
		return auditErrInternal
	}
}
