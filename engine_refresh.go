package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/fintrackr/authcore/internal"
	"github.com/fintrackr/authcore/store"
	"github.com/fintrackr/authcore/token"
)

func (e *Engine) refreshTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return e.config.Refresh.TTL
	}
	return e.config.Refresh.ShortTTL
}

// issueRefreshSession mints a fresh opaque refresh token and installs it as
// the user's only active session.
func (e *Engine) issueRefreshSession(ctx context.Context, userID string, rememberMe bool, now time.Time) (string, error) {
	secret, err := internal.NewSecret()
	if err != nil {
		return "", err
	}
	tok, err := internal.EncodeUserToken(userID, secret)
	if err != nil {
		return "", err
	}

	session := store.RefreshSession{
		UserID:    userID,
		TokenHash: internal.HashSecret(secret),
		IssuedAt:  now,
		ExpiresAt: now.Add(e.refreshTTL(rememberMe)),
	}
	if err := e.store.SaveRefreshSession(ctx, session); err != nil {
		return "", e.storeErr(err)
	}
	return tok, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.store == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	userID, secret, err := internal.DecodeUserToken(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}

	newSecret, err := internal.NewSecret()
	if err != nil {
		return nil, err
	}

	now := e.clock()
	// Sliding window: each rotation extends the session by its own issued
	// lifetime, so a remember-me session slides by the long TTL and a
	// short session by the short one. The one-session-per-user model means
	// a stolen-then-rotated token is already invalidated for the
	// legitimate holder, who will surface the theft on their next refresh.
	_, err = e.store.RotateRefreshSession(
		ctx, userID,
		internal.HashSecret(secret), internal.HashSecret(newSecret),
		now,
	)
	if err != nil {
		if errors.Is(err, store.ErrRefreshMismatch) {
			// Already rotated, revoked, or expired: treat as a reuse
			// signal and tell the caller to log out.
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, userID, "", ErrTokenInvalid, nil)
			return nil, ErrTokenInvalid
		}
		e.metricInc(MetricRefreshFailure)
		return nil, e.storeErr(err)
	}

	user, err := e.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, e.storeErr(err)
	}
	if user.Status != store.StatusActive {
		// Suspended mid-session: kill the session rather than keep
		// minting access tokens for it.
		_ = e.store.DeleteRefreshSession(ctx, userID)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, userID, user.Email, ErrAccountNotActive, nil)
		return nil, ErrTokenInvalid
	}

	access, accessExp, err := e.tokens.CreateAccess(user.ID, user.Email, user.EmailVerified)
	if err != nil {
		return nil, err
	}
	newToken, err := internal.EncodeUserToken(userID, newSecret)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, user.Email, nil, nil)

	return &TokenPair{
		AccessToken:     access,
		AccessExpiresAt: accessExp,
		RefreshToken:    newToken,
	}, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, userID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	if err := e.store.DeleteRefreshSession(ctx, userID); err != nil {
		// The caller's local session dies regardless; a revoke that did
		// not stick is a security event, not a user-facing failure.
		e.emitAudit(ctx, auditEventLogout, false, userID, "", e.storeErr(err), func() map[string]string {
			return map[string]string{
				"reason": "revoke_failed",
			}
		})
		return nil
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, "", nil, nil)
	return nil
}

// VerifyAccessToken describes the verifyaccesstoken operation and its observable behavior.
//
// VerifyAccessToken may return an error when input validation, dependency calls, or security checks fail.
// VerifyAccessToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyAccessToken(accessToken string) (*token.AccessClaims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
