package authclient

import (
	"context"
	"errors"
	"time"
)

// Audit event types.
const (
	AuditEventLoginSuccess         = "login_success"
	AuditEventLoginFailure         = "login_failure"
	AuditEventRegister             = "register"
	AuditEventLogout               = "logout"
	AuditEventSessionRefreshed     = "session_refreshed"
	AuditEventSessionExpired       = "session_expired"
	AuditEventPasswordResetRequest = "password_reset_request"
	AuditEventPasswordResetConfirm = "password_reset_confirm"
	AuditEventOAuthLogin           = "oauth_login"
)

// AuditErrorCode is the stable, body-free error label recorded on events.
type AuditErrorCode string

const (
	auditErrNetwork            AuditErrorCode = "network"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccessDenied       AuditErrorCode = "access_denied"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenInvalid       AuditErrorCode = "token_invalid"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrServer             AuditErrorCode = "server"
	auditErrNotAuthenticated   AuditErrorCode = "not_authenticated"
	auditErrStore              AuditErrorCode = "store_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	c.audit.Emit(ctx, AuditEvent{
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		RequestID: RequestIDFromContext(ctx),
		Subject:   subject,
		Success:   success,
		Error:     string(auditErrorCode(err)),
		Metadata:  metadata,
	})
}

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return auditErrNetwork
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccessDenied):
		return auditErrAccessDenied
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrServer):
		return auditErrServer
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuthenticated
	case errors.Is(err, errStoreUnavailable):
		return auditErrStore
	}
	return auditErrInternal
}

// AuditDropped returns the number of events dropped under backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}
