package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type config struct {
	Addr        string        `env:"AUTHD_ADDR" envDefault:":8080"`
	DatabaseURL string        `env:"DATABASE_URL,required"`
	RedisAddr   string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int           `env:"REDIS_DB" envDefault:"0"`
	Migrate     bool          `env:"AUTHD_MIGRATE" envDefault:"true"`
	Notifier    string        `env:"AUTHD_NOTIFIER" envDefault:"log"`
	AuditLog    bool          `env:"AUTHD_AUDIT_LOG" envDefault:"true"`
	ReadTimeout time.Duration `env:"AUTHD_READ_TIMEOUT" envDefault:"15s"`

	SigningMethod string `env:"JWT_SIGNING_METHOD" envDefault:"hs256"`
	// Hex/base64 handling stays with the operator: the value is passed to
	// the token manager as raw bytes.
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTPrivateKey string        `env:"JWT_PRIVATE_KEY_PEM"`
	JWTPublicKey  string        `env:"JWT_PUBLIC_KEY_PEM"`
	AccessTTL     time.Duration `env:"ACCESS_TTL" envDefault:"1h"`
	RefreshTTL    time.Duration `env:"REFRESH_TTL" envDefault:"4320h"`

	LockoutMaxAttempts int           `env:"LOCKOUT_MAX_ATTEMPTS" envDefault:"5"`
	LockoutDuration    time.Duration `env:"LOCKOUT_DURATION" envDefault:"30m"`
	StepUpInactivity   time.Duration `env:"STEP_UP_INACTIVITY" envDefault:"168h"`

	IPRateLimit  int           `env:"HTTP_RATE_LIMIT" envDefault:"100"`
	IPRateWindow time.Duration `env:"HTTP_RATE_WINDOW" envDefault:"1m"`
	StrictLimit  int           `env:"HTTP_STRICT_RATE_LIMIT" envDefault:"10"`
}

func loadConfig() (*config, error) {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.SigningMethod {
	case "hs256":
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required for hs256")
		}
	case "ed25519":
		if cfg.JWTPrivateKey == "" || cfg.JWTPublicKey == "" {
			return nil, fmt.Errorf("JWT_PRIVATE_KEY_PEM and JWT_PUBLIC_KEY_PEM are required for ed25519")
		}
	default:
		return nil, fmt.Errorf("unsupported JWT_SIGNING_METHOD %q", cfg.SigningMethod)
	}

	return &cfg, nil
}
