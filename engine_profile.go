package authcore

import (
	"context"
	"errors"

	"github.com/fintrackr/authcore/store"
)

// GetProfile describes the getprofile operation and its observable behavior.
//
// GetProfile may return an error when input validation, dependency calls, or security checks fail.
// GetProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, e.storeErr(err)
	}

	profile := profileFromUser(user)
	return &profile, nil
}
