package memory

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fintrackr/authcore/store"
)

func newUser(t *testing.T, s *Store, email string) store.User {
	t.Helper()

	user, err := s.CreateUser(context.Background(), store.User{
		Email:        email,
		PasswordHash: "$argon2id$stub",
		Status:       store.StatusPendingVerification,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := New()
	newUser(t, s, "a@example.com")

	_, err := s.CreateUser(context.Background(), store.User{Email: "a@example.com"})
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestUserLookups(t *testing.T) {
	s := New()
	ctx := context.Background()
	created := newUser(t, s, "a@example.com")

	byEmail, err := s.UserByEmail(ctx, "a@example.com")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("UserByEmail = %v/%v, want id %s", byEmail.ID, err, created.ID)
	}
	byID, err := s.UserByID(ctx, created.ID)
	if err != nil || byID.Email != "a@example.com" {
		t.Fatalf("UserByID = %v/%v", byID.Email, err)
	}

	if _, err := s.UserByEmail(ctx, "missing@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing email err = %v, want ErrNotFound", err)
	}
	if _, err := s.UserByID(ctx, "missing-id"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing id err = %v, want ErrNotFound", err)
	}
}

func TestRecordLoginFailureThreshold(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")

	for i := 1; i <= 2; i++ {
		update, err := s.RecordLoginFailure(ctx, user.ID, 3, time.Minute)
		if err != nil {
			t.Fatalf("RecordLoginFailure failed: %v", err)
		}
		if update.FailedLogins != i {
			t.Fatalf("FailedLogins = %d, want %d", update.FailedLogins, i)
		}
		if update.Locked(time.Now()) {
			t.Fatalf("locked after %d failures, threshold is 3", i)
		}
	}

	update, err := s.RecordLoginFailure(ctx, user.ID, 3, time.Minute)
	if err != nil {
		t.Fatalf("RecordLoginFailure failed: %v", err)
	}
	if !update.Locked(time.Now()) {
		t.Fatal("third failure must trip the lock")
	}
}

func TestRecordLoginFailureConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")

	const attempts = 50
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.RecordLoginFailure(ctx, user.ID, 5, time.Minute)
		}()
	}
	wg.Wait()

	got, err := s.UserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserByID failed: %v", err)
	}
	if got.FailedLogins != attempts {
		t.Fatalf("FailedLogins = %d, want %d (no lost increments)", got.FailedLogins, attempts)
	}
}

func TestRecordLoginSuccessClearsLockout(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")

	for i := 0; i < 3; i++ {
		_, _ = s.RecordLoginFailure(ctx, user.ID, 3, time.Minute)
	}

	at := time.Now()
	if err := s.RecordLoginSuccess(ctx, user.ID, at, "203.0.113.9"); err != nil {
		t.Fatalf("RecordLoginSuccess failed: %v", err)
	}

	got, _ := s.UserByID(ctx, user.ID)
	if got.FailedLogins != 0 || !got.LockedUntil.IsZero() {
		t.Fatalf("lockout state = %d/%v, want cleared", got.FailedLogins, got.LockedUntil)
	}
	if !got.LastLogin.Equal(at) || got.LastLoginIP != "203.0.113.9" {
		t.Fatalf("login stamp = %v/%q, want %v/203.0.113.9", got.LastLogin, got.LastLoginIP, at)
	}
}

func hashOf(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

func upsertVerification(t *testing.T, s *Store, userID string, purpose store.VerificationPurpose, token, code string) {
	t.Helper()

	err := s.UpsertVerification(context.Background(), store.VerificationRecord{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: hashOf(token),
		CodeHash:  hashOf(code),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("UpsertVerification failed: %v", err)
	}
}

func TestConsumeVerificationActivatesAccount(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")
	upsertVerification(t, s, user.ID, store.PurposeEmailVerification, "tok", "123456")

	got, err := s.ConsumeVerification(ctx, user.ID, store.PurposeEmailVerification, hashOf("tok"), false, 5)
	if err != nil {
		t.Fatalf("ConsumeVerification failed: %v", err)
	}
	if got.Status != store.StatusActive || !got.EmailVerified {
		t.Fatalf("state = %v/%v, want active/verified", got.Status, got.EmailVerified)
	}

	// Single use.
	_, err = s.ConsumeVerification(ctx, user.ID, store.PurposeEmailVerification, hashOf("tok"), false, 5)
	if !errors.Is(err, store.ErrVerificationNotFound) {
		t.Fatalf("second consume err = %v, want ErrVerificationNotFound", err)
	}
}

func TestConsumeVerificationByCode(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")
	upsertVerification(t, s, user.ID, store.PurposeEmailVerification, "tok", "123456")

	// The token hash does not match the code slot.
	_, err := s.ConsumeVerification(ctx, user.ID, store.PurposeEmailVerification, hashOf("tok"), true, 5)
	if !errors.Is(err, store.ErrVerificationMismatch) {
		t.Fatalf("err = %v, want ErrVerificationMismatch", err)
	}

	if _, err := s.ConsumeVerification(ctx, user.ID, store.PurposeEmailVerification, hashOf("123456"), true, 5); err != nil {
		t.Fatalf("consume by code failed: %v", err)
	}
}

func TestConsumeVerificationAttemptCap(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")
	upsertVerification(t, s, user.ID, store.PurposePasswordReset, "tok", "123456")

	for i := 0; i < 2; i++ {
		_, err := s.ConsumeVerification(ctx, user.ID, store.PurposePasswordReset, hashOf("wrong"), false, 3)
		if !errors.Is(err, store.ErrVerificationMismatch) {
			t.Fatalf("attempt %d err = %v, want ErrVerificationMismatch", i+1, err)
		}
	}

	// Third mismatch exhausts the record.
	_, err := s.ConsumeVerification(ctx, user.ID, store.PurposePasswordReset, hashOf("wrong"), false, 3)
	if !errors.Is(err, store.ErrVerificationAttempts) {
		t.Fatalf("err = %v, want ErrVerificationAttempts", err)
	}

	// Even the right secret is dead now.
	_, err = s.ConsumeVerification(ctx, user.ID, store.PurposePasswordReset, hashOf("tok"), false, 3)
	if !errors.Is(err, store.ErrVerificationNotFound) {
		t.Fatalf("err = %v, want ErrVerificationNotFound", err)
	}
}

func TestConsumeVerificationExpired(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")

	err := s.UpsertVerification(ctx, store.VerificationRecord{
		UserID:    user.ID,
		Purpose:   store.PurposePasswordReset,
		TokenHash: hashOf("tok"),
		ExpiresAt: time.Now().Add(-time.Second),
	})
	if err != nil {
		t.Fatalf("UpsertVerification failed: %v", err)
	}

	_, err = s.ConsumeVerification(ctx, user.ID, store.PurposePasswordReset, hashOf("tok"), false, 5)
	if !errors.Is(err, store.ErrVerificationNotFound) {
		t.Fatalf("err = %v, want ErrVerificationNotFound", err)
	}
}

func TestUpsertVerificationSupersedes(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")

	upsertVerification(t, s, user.ID, store.PurposeEmailVerification, "old", "111111")
	upsertVerification(t, s, user.ID, store.PurposeEmailVerification, "new", "222222")

	_, err := s.ConsumeVerification(ctx, user.ID, store.PurposeEmailVerification, hashOf("old"), false, 5)
	if !errors.Is(err, store.ErrVerificationMismatch) {
		t.Fatalf("superseded token err = %v, want ErrVerificationMismatch", err)
	}
	if _, err := s.ConsumeVerification(ctx, user.ID, store.PurposeEmailVerification, hashOf("new"), false, 5); err != nil {
		t.Fatalf("fresh token failed: %v", err)
	}
}

func TestRotateRefreshSession(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")

	first := hashOf("first")
	second := hashOf("second")

	issued := time.Now()
	err := s.SaveRefreshSession(ctx, store.RefreshSession{
		UserID:    user.ID,
		TokenHash: first,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	rotated, err := s.RotateRefreshSession(ctx, user.ID, first, second, issued.Add(time.Minute))
	if err != nil {
		t.Fatalf("RotateRefreshSession failed: %v", err)
	}
	if rotated.TokenHash != second {
		t.Fatal("rotation did not install the new hash")
	}

	// The old hash is a reuse signal from here on.
	_, err = s.RotateRefreshSession(ctx, user.ID, first, hashOf("third"), issued.Add(2*time.Minute))
	if !errors.Is(err, store.ErrRefreshMismatch) {
		t.Fatalf("err = %v, want ErrRefreshMismatch", err)
	}
}

func TestRotatePreservesSessionLifetime(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")

	issued := time.Now()
	lifetime := 30 * time.Minute
	err := s.SaveRefreshSession(ctx, store.RefreshSession{
		UserID:    user.ID,
		TokenHash: hashOf("short"),
		IssuedAt:  issued,
		ExpiresAt: issued.Add(lifetime),
	})
	if err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	// A session issued with a 30m lifetime slides by 30m, not by some
	// configured maximum.
	at := issued.Add(10 * time.Minute)
	rotated, err := s.RotateRefreshSession(ctx, user.ID, hashOf("short"), hashOf("next"), at)
	if err != nil {
		t.Fatalf("RotateRefreshSession failed: %v", err)
	}
	if !rotated.IssuedAt.Equal(at) {
		t.Fatalf("IssuedAt = %v, want %v", rotated.IssuedAt, at)
	}
	if got := rotated.ExpiresAt.Sub(rotated.IssuedAt); got != lifetime {
		t.Fatalf("rotated lifetime = %v, want %v", got, lifetime)
	}
}

func TestRotateRefreshSessionConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")

	current := hashOf("current")
	err := s.SaveRefreshSession(ctx, store.RefreshSession{
		UserID:    user.ID,
		TokenHash: current,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	// Two racing rotations from the same token: exactly one may win.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.RotateRefreshSession(
				ctx, user.ID, current, hashOf("next"+string(rune('a'+i))), time.Now(),
			)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, store.ErrRefreshMismatch) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
}

func TestRotateExpiredSession(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")

	current := hashOf("current")
	err := s.SaveRefreshSession(ctx, store.RefreshSession{
		UserID:    user.ID,
		TokenHash: current,
		IssuedAt:  time.Now().Add(-time.Minute),
		ExpiresAt: time.Now().Add(-time.Second),
	})
	if err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	_, err = s.RotateRefreshSession(ctx, user.ID, current, hashOf("next"), time.Now())
	if !errors.Is(err, store.ErrRefreshMismatch) {
		t.Fatalf("err = %v, want ErrRefreshMismatch for expired session", err)
	}
}

func TestDeleteRefreshSessionIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := newUser(t, s, "a@example.com")

	if err := s.DeleteRefreshSession(ctx, user.ID); err != nil {
		t.Fatalf("delete without session failed: %v", err)
	}

	err := s.SaveRefreshSession(ctx, store.RefreshSession{
		UserID:    user.ID,
		TokenHash: hashOf("tok"),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if err := s.DeleteRefreshSession(ctx, user.ID); err != nil {
		t.Fatalf("DeleteRefreshSession failed: %v", err)
	}
	if err := s.DeleteRefreshSession(ctx, user.ID); err != nil {
		t.Fatalf("repeat delete failed: %v", err)
	}
}
