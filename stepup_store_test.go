package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStepUpStoreRoundTrip(t *testing.T) {
	s := newStepUpStore(newTestRedis(t), time.Minute)
	ctx := context.Background()

	record := &stepUpChallenge{
		UserID:     "user-1",
		IP:         "203.0.113.9",
		RememberMe: true,
		ExpiresAt:  time.Now().Add(time.Minute).Unix(),
	}
	if err := s.Save(ctx, "challenge-1", record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Get(ctx, "challenge-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != record.UserID || got.IP != record.IP {
		t.Fatalf("got %+v, want %+v", got, record)
	}
	if !got.RememberMe {
		t.Fatal("RememberMe flag lost in encoding")
	}
	if got.ExpiresAt != record.ExpiresAt {
		t.Fatalf("ExpiresAt = %d, want %d", got.ExpiresAt, record.ExpiresAt)
	}
}

func TestStepUpStoreMissing(t *testing.T) {
	s := newStepUpStore(newTestRedis(t), time.Minute)

	_, err := s.Get(context.Background(), "never-saved")
	if !errors.Is(err, errStepUpChallengeNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestStepUpStoreExpired(t *testing.T) {
	s := newStepUpStore(newTestRedis(t), time.Minute)
	ctx := context.Background()

	record := &stepUpChallenge{
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Second).Unix(),
	}
	if err := s.Save(ctx, "stale", record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := s.Get(ctx, "stale"); !errors.Is(err, errStepUpChallengeExpired) {
		t.Fatalf("err = %v, want expired", err)
	}

	// The expired record was reaped on read.
	if _, err := s.Get(ctx, "stale"); !errors.Is(err, errStepUpChallengeNotFound) {
		t.Fatalf("second read err = %v, want not-found", err)
	}
}

func TestStepUpStoreDelete(t *testing.T) {
	s := newStepUpStore(newTestRedis(t), time.Minute)
	ctx := context.Background()

	record := &stepUpChallenge{
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Minute).Unix(),
	}
	if err := s.Save(ctx, "del-me", record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	removed, err := s.Delete(ctx, "del-me")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !removed {
		t.Fatal("expected Delete to report removal")
	}

	removed, err = s.Delete(ctx, "del-me")
	if err != nil {
		t.Fatalf("repeat Delete failed: %v", err)
	}
	if removed {
		t.Fatal("repeat Delete must be a no-op")
	}
}

func TestStepUpChallengeDecodeRejectsBadVersion(t *testing.T) {
	record := &stepUpChallenge{UserID: "u", ExpiresAt: 42}
	encoded, err := encodeStepUpChallenge(record)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	encoded[0] = 99
	if _, err := decodeStepUpChallenge(encoded); err == nil {
		t.Fatal("expected version error")
	}
}

func TestStepUpChallengeDecodeRejectsTruncation(t *testing.T) {
	record := &stepUpChallenge{UserID: "user-1", IP: "203.0.113.9", ExpiresAt: 42}
	encoded, err := encodeStepUpChallenge(record)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	for i := 1; i < len(encoded); i++ {
		if _, err := decodeStepUpChallenge(encoded[:i]); err == nil {
			t.Fatalf("truncation at %d decoded without error", i)
		}
	}
}
