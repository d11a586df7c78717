package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestChangePassword(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	userID := activeUser(t, env, "change@example.com", testPassword)
	login := loginUser(t, env, "change@example.com")

	const newPassword = "a-completely-new-secret"
	if err := env.engine.ChangePassword(ctx, userID, testPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := env.engine.Login(ctx, LoginRequest{
		Email:    "change@example.com",
		Password: newPassword,
	}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	// The change revoked the existing session.
	if _, err := env.engine.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("stale session err = %v, want ErrTokenInvalid", err)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	userID := activeUser(t, env, "wrongcur@example.com", testPassword)

	err := env.engine.ChangePassword(ctx, userID, "not-the-password", "whatever-new-secret")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	// A wrong current password here never feeds the lockout counter.
	user, err := env.store.UserByID(ctx, userID)
	if err != nil {
		t.Fatalf("UserByID failed: %v", err)
	}
	if user.FailedLogins != 0 {
		t.Fatalf("FailedLogins = %d, want 0", user.FailedLogins)
	}
}

func TestChangePasswordPolicyRejection(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	userID := activeUser(t, env, "weaknew@example.com", testPassword)

	err := env.engine.ChangePassword(ctx, userID, testPassword, "short")
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("err = %v, want ErrPasswordPolicy", err)
	}
}

func TestChangePasswordUnknownUser(t *testing.T) {
	env := newTestEngine(t, testConfig())

	err := env.engine.ChangePassword(context.Background(), "no-such-id", testPassword, "whatever-new-secret")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestGetProfile(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	userID := activeUser(t, env, "profile@example.com", testPassword)

	profile, err := env.engine.GetProfile(ctx, userID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Email != "profile@example.com" {
		t.Fatalf("Email = %q, want profile@example.com", profile.Email)
	}
	if profile.Status != StatusActive {
		t.Fatalf("Status = %v, want %v", profile.Status, StatusActive)
	}

	if _, err := env.engine.GetProfile(ctx, "no-such-id"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown id err = %v, want ErrInvalidCredentials", err)
	}
}
