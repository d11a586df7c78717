package authcore

import (
	"context"
	"errors"

	"github.com/fintrackr/authcore/store"
)

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if e == nil || e.store == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}

	user, err := e.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return e.storeErr(err)
	}

	// The caller already holds an access token; lockout counting does not
	// apply here.
	ok, err := e.passwordHash.Verify(oldPassword, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, user.Email, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, user.Email, ErrPasswordPolicy, nil)
		return ErrPasswordPolicy
	}

	if err := e.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, user.Email, e.storeErr(err), nil)
		return e.storeErr(err)
	}

	// Changing the password invalidates the long-lived session; the caller
	// re-authenticates with the new credential.
	if err := e.store.DeleteRefreshSession(ctx, user.ID); err != nil {
		e.emitAudit(ctx, auditEventLogout, false, user.ID, user.Email, e.storeErr(err), func() map[string]string {
			return map[string]string{
				"reason": "revoke_failed",
			}
		})
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, user.ID, user.Email, nil, nil)
	return nil
}
