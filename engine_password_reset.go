package authcore

import (
	"context"
	"errors"

	"github.com/fintrackr/authcore/internal"
	"github.com/fintrackr/authcore/store"
)

// RequestPasswordReset describes the requestpasswordreset operation and its observable behavior.
//
// RequestPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// RequestPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	user, err := e.store.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Identical response whether or not the account exists; the
			// delay keeps the two paths from diverging in time either.
			e.enumerationDelay()
			e.emitAudit(ctx, auditEventPasswordResetRequest, true, "", normalizeEmail(email), nil, func() map[string]string {
				return map[string]string{
					"known_account": "false",
				}
			})
			return nil
		}
		return e.storeErr(err)
	}

	if err := e.checkSendBudget(ctx, user.ID, store.PurposePasswordReset); err != nil {
		if errors.Is(err, ErrRateLimited) {
			// Still the generic success: the budget only gates the send.
			e.emitRateLimit(ctx, store.PurposePasswordReset.String(), user.ID, user.Email)
			return nil
		}
		return err
	}

	issued, err := e.issueVerification(ctx, user, store.PurposePasswordReset)
	if err != nil {
		return err
	}
	e.sendVerification(user, store.PurposePasswordReset, issued)

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, user.ID, user.Email, nil, nil)
	return nil
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword may return an error when input validation, dependency calls, or security checks fail.
// ResetPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResetPassword(ctx context.Context, linkToken, newPassword string) error {
	if e == nil || e.store == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}

	userID, secret, err := internal.DecodeUserToken(linkToken)
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		return ErrTokenInvalid
	}

	// Hash before consuming so a policy rejection does not burn the
	// single-use reset record.
	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, userID, "", ErrPasswordPolicy, nil)
		return ErrPasswordPolicy
	}

	user, err := e.store.ConsumeVerification(
		ctx, userID, store.PurposePasswordReset,
		internal.HashSecret(secret), false,
		e.config.Verification.MaxAttempts,
	)
	if err != nil {
		mapped := consumeVerificationErr(err)
		if errors.Is(mapped, ErrInvalidVerificationCode) {
			mapped = ErrTokenInvalid
		}
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, userID, "", mapped, nil)
		return mapped
	}

	if err := e.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, user.ID, user.Email, e.storeErr(err), nil)
		return e.storeErr(err)
	}

	// A reset proves the old session holder may no longer be the owner.
	if err := e.store.DeleteRefreshSession(ctx, user.ID); err != nil {
		e.emitAudit(ctx, auditEventLogout, false, user.ID, user.Email, e.storeErr(err), func() map[string]string {
			return map[string]string{
				"reason": "revoke_failed",
			}
		})
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, user.ID, user.Email, nil, nil)
	return nil
}
