package authcore

import (
	"context"
	"errors"
)

const (
	auditEventRegisterSuccess       = "register_success"
	auditEventRegisterDuplicate     = "register_duplicate"
	auditEventRegisterFailure       = "register_failure"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginLocked           = "login_locked"
	auditEventLoginStepUpRequired   = "login_step_up_required"
	auditEventLoginStepUpSuccess    = "login_step_up_success"
	auditEventLoginStepUpFailure    = "login_step_up_failure"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventRefreshReuseDetected  = "refresh_reuse_detected"
	auditEventLogout                = "logout"
	auditEventEmailVerifyRequest    = "email_verification_request"
	auditEventEmailVerifyConfirm    = "email_verification_confirm"
	auditEventEmailVerifyFailure    = "email_verification_failure"
	auditEventPasswordResetRequest  = "password_reset_request"
	auditEventPasswordResetConfirm  = "password_reset_confirm"
	auditEventPasswordResetFailure  = "password_reset_failure"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventAccountLocked         = "account_locked"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
	auditEventNotifySendFailure     = "notify_send_failure"
)

// AuditErrorCode defines a public type used by authcore APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrAccountUnverified  AuditErrorCode = "account_unverified"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrStepUpRequired     AuditErrorCode = "step_up_required"
	auditErrInvalidCode        AuditErrorCode = "invalid_code"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
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

	event := AuditEvent{
		Timestamp: e.clock(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// auditNotifyFailure records a failed outbound message as a security event.
// Delivery stays best effort; the failure never propagates to the operation
// that enqueued the message.
func (e *Engine) auditNotifyFailure(msg Message, err error) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Emit(context.Background(), AuditEvent{
		Timestamp: e.clock(),
		EventType: auditEventNotifySendFailure,
		UserID:    msg.UserID,
		Email:     msg.Email,
		Success:   false,
		Error:     err.Error(),
		Metadata: map[string]string{
			"kind": string(msg.Kind),
		},
	})
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, userID, email string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, userID, email, ErrRateLimited, func() map[string]string {
		return map[string]string{
			"scope": scope,
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrEmailVerificationRequired):
		return auditErrAccountUnverified
	case errors.Is(err, ErrAccountNotActive):
		return auditErrAccountDisabled
	case errors.Is(err, ErrStepUpRequired):
		return auditErrStepUpRequired
	case errors.Is(err, ErrInvalidVerificationCode):
		return auditErrInvalidCode
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
