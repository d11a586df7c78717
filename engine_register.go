package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/fintrackr/authcore/store"
	"github.com/google/uuid"
)

// normalizeEmail is the single canonical form used for lookups and the
// uniqueness constraint.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.store == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, ErrInvalidRequest, func() map[string]string {
			return map[string]string{
				"reason": "invalid_email",
			}
		})
		return nil, ErrInvalidRequest
	}
	if req.Kind == KindBusiness && strings.TrimSpace(req.CompanyName) == "" {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, ErrInvalidRequest, func() map[string]string {
			return map[string]string{
				"reason": "company_name_required",
			}
		})
		return nil, ErrInvalidRequest
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "hash_policy",
			}
		})
		return nil, ErrPasswordPolicy
	}

	now := e.clock()
	created, err := e.store.CreateUser(ctx, store.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Kind:         req.Kind,
		CompanyName:  strings.TrimSpace(req.CompanyName),
		Status:       store.StatusPendingVerification,
		CreatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			// The one place email existence is intentionally revealed:
			// pre-authentication, accepted UX trade-off.
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", email, ErrAccountExists, nil)
			return nil, ErrAccountExists
		}
		mapped := e.storeErr(err)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, mapped, nil)
		return nil, mapped
	}

	// Registration succeeds regardless of verification delivery; the
	// caller can always resend.
	issued, err := e.issueVerification(ctx, created, store.PurposeEmailVerification)
	if err == nil {
		e.sendVerification(created, store.PurposeEmailVerification, issued)
	} else {
		e.emitAudit(ctx, auditEventEmailVerifyRequest, false, created.ID, created.Email, err, nil)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, created.ID, created.Email, nil, nil)

	return &RegisterResult{
		UserID: created.ID,
		Status: created.Status,
	}, nil
}
