package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fintrackr/authcore/store/memory"
)

// TestAccountLifecycle walks one account through the whole surface:
// register, verify, login, step-up from a new network, rotate, logout.
func TestAccountLifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.StepUp.Enabled = true
	cfg.StepUp.OnNewClientIP = true
	env := newTestEngine(t, cfg)

	homeCtx := WithClientIP(context.Background(), "203.0.113.9")
	cafeCtx := WithClientIP(context.Background(), "198.51.100.20")

	// Register: account is pending, no tokens yet.
	reg, err := env.engine.Register(homeCtx, RegisterRequest{
		Email:     "journey@example.com",
		Password:  testPassword,
		FirstName: "Jo",
		LastName:  "Marchetti",
		Kind:      KindPersonal,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if reg.Status != StatusPendingVerification {
		t.Fatalf("Status = %v, want pending", reg.Status)
	}

	// Login before verification is refused.
	if _, err := env.engine.Login(homeCtx, LoginRequest{
		Email:    "journey@example.com",
		Password: testPassword,
	}); !errors.Is(err, ErrEmailVerificationRequired) {
		t.Fatalf("pre-verification login err = %v, want ErrEmailVerificationRequired", err)
	}

	// Verify: account activates and the first session is issued inline.
	verifMsg := awaitMessage(t, env.notifier, MessageEmailVerification)
	verified, err := env.engine.VerifyEmail(homeCtx, verifMsg.Params["token"])
	if err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if verified.User.Status != StatusActive || verified.AccessToken == "" {
		t.Fatal("verification must activate and log in")
	}

	// Ordinary login from the same network stays single-step.
	login, err := env.engine.Login(homeCtx, LoginRequest{
		Email:      "journey@example.com",
		Password:   testPassword,
		RememberMe: true,
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if login.StepUpRequired {
		t.Fatal("unexpected step-up from known network")
	}

	// A new network triggers the step-up challenge.
	challenge, err := env.engine.Login(cafeCtx, LoginRequest{
		Email:    "journey@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Login from new network failed: %v", err)
	}
	if !challenge.StepUpRequired {
		t.Fatal("expected step-up from new network")
	}
	codeMsg := awaitMessage(t, env.notifier, MessageLoginVerification)

	confirmed, err := env.engine.ConfirmLogin(cafeCtx, challenge.Challenge, codeMsg.Params["code"])
	if err != nil {
		t.Fatalf("ConfirmLogin failed: %v", err)
	}

	// Rotate the fresh session once, then log out.
	pair, err := env.engine.Refresh(cafeCtx, confirmed.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if err := env.engine.Logout(cafeCtx, reg.UserID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := env.engine.Refresh(cafeCtx, pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("post-logout refresh err = %v, want ErrTokenInvalid", err)
	}

	snap := env.engine.MetricsSnapshot()
	for _, id := range []MetricID{
		MetricRegisterSuccess,
		MetricEmailVerificationSuccess,
		MetricLoginSuccess,
		MetricStepUpRequired,
		MetricStepUpSuccess,
		MetricRefreshSuccess,
		MetricLogout,
	} {
		if snap.Counters[id] == 0 {
			t.Fatalf("counter %d not incremented", id)
		}
	}
}

func TestCloseDrainsDispatchers(t *testing.T) {
	sink := NewChannelSink(64)

	engine, err := New().
		WithConfig(testConfig()).
		WithStore(memory.New()).
		WithRedis(newTestRedis(t)).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, _ = engine.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: testPassword,
	})
	engine.Close()

	// The failure event must have been flushed before Close returned.
	select {
	case ev := <-sink.Events():
		if ev.EventType == "" {
			t.Fatal("event missing type")
		}
	case <-time.After(time.Second):
		t.Fatal("expected audit event after Close")
	}
}
