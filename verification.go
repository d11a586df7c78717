package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/fintrackr/authcore/internal"
	"github.com/fintrackr/authcore/internal/rate"
	"github.com/fintrackr/authcore/store"
)

// issuedVerification carries the plaintext material for a freshly minted
// challenge. It exists only long enough to hand off to the notifier.
type issuedVerification struct {
	Token string
	Code  string
}

func (e *Engine) verificationTTL(purpose store.VerificationPurpose) time.Duration {
	switch purpose {
	case store.PurposeLoginVerification:
		return e.config.Verification.LoginTTL
	case store.PurposePasswordReset:
		return e.config.Verification.ResetTTL
	default:
		return e.config.Verification.EmailTTL
	}
}

// checkSendBudget enforces the outbound-email budget for one (user, purpose)
// pair. Exceeding it is not an error the caller may leak; callers decide
// whether to surface ErrRateLimited or silently skip the send.
func (e *Engine) checkSendBudget(ctx context.Context, userID string, purpose store.VerificationPurpose) error {
	if !e.config.RateLimit.Enabled {
		return nil
	}

	result, err := e.limiter.Check(ctx, userID, purpose.String(), e.config.RateLimit.Window, e.config.RateLimit.MaxPerWindow)
	if err != nil {
		if errors.Is(err, rate.ErrRedisUnavailable) {
			// Fail closed: issuing unmetered emails is worse than
			// delaying legitimate ones.
			return ErrRateLimited
		}
		return err
	}
	if !result.Allowed {
		return ErrRateLimited
	}
	return nil
}

// issueVerification mints a link token and a numeric code for the given
// purpose, persists only their hashes, and returns the plaintext for
// delivery. Re-issuing supersedes the previous live challenge.
func (e *Engine) issueVerification(ctx context.Context, user store.User, purpose store.VerificationPurpose) (issuedVerification, error) {
	var out issuedVerification

	secret, err := internal.NewSecret()
	if err != nil {
		return out, err
	}
	token, err := internal.EncodeUserToken(user.ID, secret)
	if err != nil {
		return out, err
	}
	code, err := internal.NewOTP(e.config.Verification.OTPDigits)
	if err != nil {
		return out, err
	}

	now := e.clock()
	rec := store.VerificationRecord{
		UserID:    user.ID,
		Purpose:   purpose,
		TokenHash: internal.HashSecret(secret),
		CodeHash:  internal.HashSecretString(code),
		ExpiresAt: now.Add(e.verificationTTL(purpose)),
		CreatedAt: now,
	}
	if err := e.store.UpsertVerification(ctx, rec); err != nil {
		return out, e.storeErr(err)
	}

	out.Token = token
	out.Code = code
	return out, nil
}

func messageKindFor(purpose store.VerificationPurpose) MessageKind {
	switch purpose {
	case store.PurposeLoginVerification:
		return MessageLoginVerification
	case store.PurposePasswordReset:
		return MessagePasswordReset
	default:
		return MessageEmailVerification
	}
}

// sendVerification enqueues the outbound message carrying the challenge
// material. Delivery is asynchronous and best effort.
func (e *Engine) sendVerification(user store.User, purpose store.VerificationPurpose, issued issuedVerification) {
	e.notify.Enqueue(Message{
		Kind:   messageKindFor(purpose),
		UserID: user.ID,
		Email:  user.Email,
		Params: map[string]string{
			"token": issued.Token,
			"code":  issued.Code,
		},
	})
}

// consumeVerificationErr maps store-level consume failures onto the public
// taxonomy. Everything the caller may see collapses to a single invalid-code
// error so responses stay indistinguishable.
func consumeVerificationErr(err error) error {
	switch {
	case errors.Is(err, store.ErrVerificationNotFound),
		errors.Is(err, store.ErrVerificationMismatch),
		errors.Is(err, store.ErrVerificationAttempts),
		errors.Is(err, store.ErrNotFound):
		return ErrInvalidVerificationCode
	case errors.Is(err, store.ErrUnavailable):
		return ErrStoreUnavailable
	}
	return err
}
