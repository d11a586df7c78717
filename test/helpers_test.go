//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authcore "github.com/fintrackr/authcore"
	"github.com/fintrackr/authcore/store/memory"
)

// codeCapture exposes the plaintext verification codes the engine sends out,
// so the suite can drive verification flows end to end.
type codeCapture struct {
	codes chan string
}

func (c *codeCapture) Send(_ context.Context, msg authcore.Message) error {
	if code := msg.Params["code"]; code != "" {
		select {
		case c.codes <- code:
		default:
		}
	}
	return nil
}

func (c *codeCapture) next(t *testing.T) string {
	t.Helper()

	select {
	case code := <-c.codes:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verification code")
		return ""
	}
}

func newIntegrationEngine(t *testing.T) (*authcore.Engine, *codeCapture) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := authcore.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("integration-suite-secret-0123456789")
	cfg.Password = authcore.PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	cfg.StepUp.Enabled = false

	capture := &codeCapture{codes: make(chan string, 16)}
	engine, err := authcore.New().
		WithConfig(cfg).
		WithStore(memory.New()).
		WithRedis(rdb).
		WithNotifier(capture).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, capture
}

// activeSession registers, verifies, and logs in one account, returning the
// refresh token of the fresh session.
func activeSession(t *testing.T, engine *authcore.Engine, capture *codeCapture, email, password string) string {
	t.Helper()
	ctx := context.Background()

	if _, err := engine.Register(ctx, authcore.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: "Iggy",
		LastName:  "Ration",
		Kind:      authcore.KindPersonal,
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := engine.VerifyEmailCode(ctx, email, capture.next(t)); err != nil {
		t.Fatalf("VerifyEmailCode failed: %v", err)
	}

	login, err := engine.Login(ctx, authcore.LoginRequest{
		Email:      email,
		Password:   password,
		RememberMe: true,
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return login.RefreshToken
}
