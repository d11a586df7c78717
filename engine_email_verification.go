package authcore

import (
	"context"
	"errors"

	"github.com/fintrackr/authcore/internal"
	"github.com/fintrackr/authcore/store"
)

// ResendVerification describes the resendverification operation and its observable behavior.
//
// ResendVerification may return an error when input validation, dependency calls, or security checks fail.
// ResendVerification does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	user, err := e.store.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same response shape as the known-account path.
			e.enumerationDelay()
			return nil
		}
		return e.storeErr(err)
	}

	if user.EmailVerified || user.Status != store.StatusPendingVerification {
		// Nothing to verify; stay indistinguishable from the happy path.
		e.enumerationDelay()
		return nil
	}

	if err := e.checkSendBudget(ctx, user.ID, store.PurposeEmailVerification); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.emitRateLimit(ctx, store.PurposeEmailVerification.String(), user.ID, user.Email)
			return nil
		}
		return err
	}

	issued, err := e.issueVerification(ctx, user, store.PurposeEmailVerification)
	if err != nil {
		return err
	}
	e.sendVerification(user, store.PurposeEmailVerification, issued)

	e.metricInc(MetricEmailVerificationRequest)
	e.emitAudit(ctx, auditEventEmailVerifyRequest, true, user.ID, user.Email, nil, nil)
	return nil
}

// VerifyEmail describes the verifyemail operation and its observable behavior.
//
// VerifyEmail may return an error when input validation, dependency calls, or security checks fail.
// VerifyEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyEmail(ctx context.Context, linkToken string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	userID, secret, err := internal.DecodeUserToken(linkToken)
	if err != nil {
		e.metricInc(MetricEmailVerificationFailure)
		return nil, ErrInvalidVerificationCode
	}

	return e.consumeEmailVerification(ctx, userID, internal.HashSecret(secret), false)
}

// VerifyEmailCode describes the verifyemailcode operation and its observable behavior.
//
// VerifyEmailCode may return an error when input validation, dependency calls, or security checks fail.
// VerifyEmailCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyEmailCode(ctx context.Context, email, code string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.store.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metricInc(MetricEmailVerificationFailure)
			return nil, ErrInvalidVerificationCode
		}
		return nil, e.storeErr(err)
	}

	return e.consumeEmailVerification(ctx, user.ID, internal.HashSecretString(code), true)
}

// consumeEmailVerification consumes the live email challenge; the store
// flips the account pending_verification -> active in the same atomic unit.
// A fresh verification logs the user straight in, so the first session does
// not cost a second password entry.
func (e *Engine) consumeEmailVerification(ctx context.Context, userID string, secretHash [32]byte, byCode bool) (*LoginResult, error) {
	user, err := e.store.ConsumeVerification(
		ctx, userID, store.PurposeEmailVerification,
		secretHash, byCode,
		e.config.Verification.MaxAttempts,
	)
	if err != nil {
		mapped := consumeVerificationErr(err)
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerifyFailure, false, userID, "", mapped, nil)
		return nil, mapped
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, auditEventEmailVerifyConfirm, true, user.ID, user.Email, nil, nil)
	e.notify.Enqueue(Message{
		Kind:   MessageWelcome,
		UserID: user.ID,
		Email:  user.Email,
	})

	return e.finalizeLogin(ctx, user, true)
}
