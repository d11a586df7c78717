package test

import (
	"context"

	"github.com/redis/go-redis/v9"

	authcore "github.com/fintrackr/authcore"
	"github.com/fintrackr/authcore/store/memory"
)

// ExampleNew demonstrates engine construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := authcore.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("replace-with-a-real-secret")

	engine, _ := authcore.New().
		WithConfig(cfg).
		WithStore(memory.New()).
		WithRedis(rdb).
		Build()
	_ = engine
}

// ExampleEngine_Login shows a typical login call and structured error handling.
func ExampleEngine_Login() {
	var engine *authcore.Engine
	_, err := engine.Login(context.Background(), authcore.LoginRequest{
		Email:    "alice@example.com",
		Password: "password",
	})
	if err != nil {
		_ = err
	}
}

// ExampleEngine_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *authcore.Engine
	snapshot := engine.MetricsSnapshot()
	_ = snapshot
}
