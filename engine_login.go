package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/fintrackr/authcore/internal"
	"github.com/fintrackr/authcore/store"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil || e.store == nil || e.passwordHash == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(req.Email)
	now := e.clock()

	user, err := e.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a full hash comparison so the unknown-user path is
			// not observably cheaper than a wrong password.
			e.passwordHash.VerifyDummy(req.Password)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", email, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, e.storeErr(err)
	}

	// Locked accounts short-circuit before any password work.
	if user.Locked(now) {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, user.ID, user.Email, ErrAccountLocked, nil)
		return nil, ErrAccountLocked
	}

	ok, err := e.passwordHash.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.recordLoginFailure(ctx, user)
	}

	if user.Status == store.StatusPendingVerification {
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, user.Email, ErrEmailVerificationRequired, nil)
		return nil, ErrEmailVerificationRequired
	}
	if user.Status != store.StatusActive {
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, user.Email, ErrAccountNotActive, nil)
		return nil, ErrAccountNotActive
	}

	e.maybeUpgradeHash(ctx, user, req.Password)

	if req.Code != "" {
		if _, err := e.store.ConsumeVerification(
			ctx, user.ID, store.PurposeLoginVerification,
			internal.HashSecretString(req.Code), true,
			e.config.Verification.MaxAttempts,
		); err != nil {
			mapped := consumeVerificationErr(err)
			e.metricInc(MetricStepUpFailure)
			e.emitAudit(ctx, auditEventLoginStepUpFailure, false, user.ID, user.Email, mapped, nil)
			return nil, mapped
		}
		e.metricInc(MetricStepUpSuccess)
		e.emitAudit(ctx, auditEventLoginStepUpSuccess, true, user.ID, user.Email, nil, nil)
		return e.finalizeLogin(ctx, user, req.RememberMe)
	}

	if e.stepUpRequired(user, clientIPFromContext(ctx)) {
		return e.beginStepUp(ctx, user, req.RememberMe)
	}

	return e.finalizeLogin(ctx, user, req.RememberMe)
}

// ConfirmLogin describes the confirmlogin operation and its observable behavior.
//
// ConfirmLogin may return an error when input validation, dependency calls, or security checks fail.
// ConfirmLogin does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ConfirmLogin(ctx context.Context, challenge, code string) (*LoginResult, error) {
	if e == nil || e.store == nil || e.stepUpStore == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	cid, err := internal.ParseChallengeID(challenge)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	record, err := e.stepUpStore.Get(ctx, cid.String())
	if err != nil {
		switch {
		case errors.Is(err, errStepUpChallengeNotFound), errors.Is(err, errStepUpChallengeExpired):
			return nil, ErrTokenInvalid
		default:
			return nil, ErrStoreUnavailable
		}
	}

	// The continuation is bound to the client that was challenged. A
	// confirm from elsewhere neither consumes the code nor the challenge,
	// so the original client can still finish.
	if ip := clientIPFromContext(ctx); ip != "" && record.IP != "" && ip != record.IP {
		e.metricInc(MetricStepUpFailure)
		e.emitAudit(ctx, auditEventLoginStepUpFailure, false, record.UserID, "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "client_ip_mismatch",
			}
		})
		return nil, ErrTokenInvalid
	}

	user, err := e.store.ConsumeVerification(
		ctx, record.UserID, store.PurposeLoginVerification,
		internal.HashSecretString(code), true,
		e.config.Verification.MaxAttempts,
	)
	if err != nil {
		mapped := consumeVerificationErr(err)
		e.metricInc(MetricStepUpFailure)
		e.emitAudit(ctx, auditEventLoginStepUpFailure, false, record.UserID, "", mapped, nil)
		return nil, mapped
	}

	// Single use: the continuation dies with the code that satisfied it.
	_, _ = e.stepUpStore.Delete(ctx, cid.String())

	now := e.clock()
	if user.Locked(now) {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, user.ID, user.Email, ErrAccountLocked, nil)
		return nil, ErrAccountLocked
	}
	if user.Status != store.StatusActive {
		e.emitAudit(ctx, auditEventLoginStepUpFailure, false, user.ID, user.Email, ErrAccountNotActive, nil)
		return nil, ErrAccountNotActive
	}

	e.metricInc(MetricStepUpSuccess)
	e.emitAudit(ctx, auditEventLoginStepUpSuccess, true, user.ID, user.Email, nil, nil)
	return e.finalizeLogin(ctx, user, record.RememberMe)
}

// recordLoginFailure counts a failed password check and reports the
// uniform credential error. The lockout threshold check rides in the same
// atomic store update as the increment.
func (e *Engine) recordLoginFailure(ctx context.Context, user store.User) error {
	update, err := e.store.RecordLoginFailure(ctx, user.ID, e.config.Lockout.MaxAttempts, e.config.Lockout.LockDuration)
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, user.Email, e.storeErr(err), nil)
		return ErrInvalidCredentials
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, user.Email, ErrInvalidCredentials, nil)

	if update.Locked(e.clock()) && update.FailedLogins == e.config.Lockout.MaxAttempts {
		e.metricInc(MetricAccountLocked)
		e.emitAudit(ctx, auditEventAccountLocked, false, user.ID, user.Email, ErrAccountLocked, nil)
		e.notify.Enqueue(Message{
			Kind:   MessageAccountLocked,
			UserID: user.ID,
			Email:  user.Email,
		})
	}

	// The lock itself is not revealed on the attempt that tripped it.
	return ErrInvalidCredentials
}

// stepUpRequired applies the risk heuristic: first-ever login, stale last
// login, or a client IP that differs from the last recorded one.
func (e *Engine) stepUpRequired(user store.User, clientIP string) bool {
	if !e.config.StepUp.Enabled {
		return false
	}
	if user.LastLogin.IsZero() {
		return true
	}
	if e.clock().Sub(user.LastLogin) > e.config.StepUp.AfterInactivity {
		return true
	}
	if e.config.StepUp.OnNewClientIP && clientIP != "" && user.LastLoginIP != "" && clientIP != user.LastLoginIP {
		return true
	}
	return false
}

// beginStepUp issues a login verification code (inside the send budget) and
// parks the pending login behind an opaque continuation token.
func (e *Engine) beginStepUp(ctx context.Context, user store.User, rememberMe bool) (*LoginResult, error) {
	if err := e.checkSendBudget(ctx, user.ID, store.PurposeLoginVerification); err != nil {
		if !errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		// Over budget: keep the previously issued code live instead of
		// superseding it with one we will not send.
		e.emitRateLimit(ctx, store.PurposeLoginVerification.String(), user.ID, user.Email)
	} else {
		issued, err := e.issueVerification(ctx, user, store.PurposeLoginVerification)
		if err != nil {
			return nil, err
		}
		e.sendVerification(user, store.PurposeLoginVerification, issued)
	}

	cid, err := internal.NewChallengeID()
	if err != nil {
		return nil, err
	}
	record := &stepUpChallenge{
		UserID:     user.ID,
		IP:         clientIPFromContext(ctx),
		RememberMe: rememberMe,
		ExpiresAt:  e.clock().Add(e.config.StepUp.ChallengeTTL).Unix(),
	}
	if err := e.stepUpStore.Save(ctx, cid.String(), record); err != nil {
		return nil, ErrStoreUnavailable
	}

	e.metricInc(MetricStepUpRequired)
	e.emitAudit(ctx, auditEventLoginStepUpRequired, true, user.ID, user.Email, nil, nil)

	return &LoginResult{
		StepUpRequired: true,
		Challenge:      cid.String(),
		User:           profileFromUser(user),
	}, nil
}

// finalizeLogin clears lockout state, stamps last_login, and mints the
// token pair. Reaching here means the login is fully authorized.
func (e *Engine) finalizeLogin(ctx context.Context, user store.User, rememberMe bool) (*LoginResult, error) {
	now := e.clock()
	ip := clientIPFromContext(ctx)

	if err := e.store.RecordLoginSuccess(ctx, user.ID, now, ip); err != nil {
		return nil, e.storeErr(err)
	}

	access, accessExp, err := e.tokens.CreateAccess(user.ID, user.Email, user.EmailVerified)
	if err != nil {
		return nil, err
	}

	refresh, err := e.issueRefreshSession(ctx, user.ID, rememberMe, now)
	if err != nil {
		return nil, err
	}

	user.FailedLogins = 0
	user.LockedUntil = time.Time{}
	user.LastLogin = now
	user.LastLoginIP = ip

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, user.Email, nil, nil)

	return &LoginResult{
		AccessToken:     access,
		AccessExpiresAt: accessExp,
		RefreshToken:    refresh,
		User:            profileFromUser(user),
	}, nil
}

// maybeUpgradeHash transparently rehashes a password stored under weaker
// argon2 parameters. Best effort; a failure never blocks the login.
func (e *Engine) maybeUpgradeHash(ctx context.Context, user store.User, password string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	needs, err := e.passwordHash.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	rehash, err := e.passwordHash.Hash(password)
	if err != nil {
		return
	}
	if err := e.store.UpdatePasswordHash(ctx, user.ID, rehash); err == nil {
		e.metricInc(MetricPasswordHashUpgraded)
	}
}
