package authcore

import (
	"errors"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT          JWTConfig
	Refresh      RefreshConfig
	Password     PasswordConfig
	Lockout      LockoutConfig
	StepUp       StepUpConfig
	Verification VerificationConfig
	RateLimit    RateLimitConfig
	Audit        AuditConfig
	Notify       NotifyConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authcore APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig defines a public type used by authcore APIs.
//
// RefreshConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RefreshConfig struct {
	// TTL is the remember-me session length. The product default keeps
	// long-lived sessions on; it is a security/UX trade-off, not a
	// technical constraint, so it stays configurable.
	TTL time.Duration
	// ShortTTL applies when a login explicitly declines remember-me.
	ShortTTL time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authcore APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by authcore APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	MaxAttempts  int
	LockDuration time.Duration
}

/*
====================================
STEP-UP CONFIG
====================================
*/

// StepUpConfig defines a public type used by authcore APIs.
//
// StepUpConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StepUpConfig struct {
	Enabled bool
	// AfterInactivity triggers a step-up challenge when the last successful
	// login is older than this.
	AfterInactivity time.Duration
	// OnNewClientIP triggers a challenge when the request's client IP
	// differs from the last recorded one. Last-IP comparison is the
	// documented baseline heuristic.
	OnNewClientIP bool
	ChallengeTTL  time.Duration
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig defines a public type used by authcore APIs.
//
// VerificationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerificationConfig struct {
	EmailTTL    time.Duration
	LoginTTL    time.Duration
	ResetTTL    time.Duration
	OTPDigits   int
	MaxAttempts int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by authcore APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled bool
	// Window and MaxPerWindow bound outbound verification/reset email
	// issuance per (user, kind).
	Window       time.Duration
	MaxPerWindow int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by authcore APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig defines a public type used by authcore APIs.
//
// NotifyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type NotifyConfig struct {
	BufferSize  int
	SendTimeout time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the recommended baseline configuration. Callers
// override what they need and pass the result to [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     time.Hour,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Refresh: RefreshConfig{
			TTL:      180 * 24 * time.Hour,
			ShortTTL: 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			MaxAttempts:  5,
			LockDuration: 30 * time.Minute,
		},
		StepUp: StepUpConfig{
			Enabled:         true,
			AfterInactivity: 7 * 24 * time.Hour,
			OnNewClientIP:   true,
			ChallengeTTL:    10 * time.Minute,
		},
		Verification: VerificationConfig{
			EmailTTL:    24 * time.Hour,
			LoginTTL:    10 * time.Minute,
			ResetTTL:    2 * time.Hour,
			OTPDigits:   6,
			MaxAttempts: 5,
		},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			Window:       10 * time.Minute,
			MaxPerWindow: 3,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Notify: NotifyConfig{
			BufferSize:  256,
			SendTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = append([]byte(nil), cfg.JWT.PrivateKey...)
	out.JWT.PublicKey = append([]byte(nil), cfg.JWT.PublicKey...)
	return out
}

func validateConfig(cfg Config) error {
	if cfg.JWT.AccessTTL <= 0 {
		return errors.New("access TTL must be positive")
	}
	if cfg.Refresh.TTL <= 0 {
		return errors.New("refresh TTL must be positive")
	}
	if cfg.Refresh.ShortTTL <= 0 || cfg.Refresh.ShortTTL > cfg.Refresh.TTL {
		return errors.New("short refresh TTL must be positive and not exceed the remember-me TTL")
	}
	if cfg.Lockout.MaxAttempts < 1 {
		return errors.New("lockout max attempts must be >= 1")
	}
	if cfg.Lockout.LockDuration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if cfg.StepUp.Enabled {
		if cfg.StepUp.AfterInactivity <= 0 {
			return errors.New("step-up inactivity window must be positive")
		}
		if cfg.StepUp.ChallengeTTL <= 0 {
			return errors.New("step-up challenge TTL must be positive")
		}
	}
	if cfg.Verification.EmailTTL <= 0 || cfg.Verification.LoginTTL <= 0 || cfg.Verification.ResetTTL <= 0 {
		return errors.New("verification TTLs must be positive")
	}
	if cfg.Verification.OTPDigits < 6 || cfg.Verification.OTPDigits > 10 {
		return errors.New("verification OTP digits must be between 6 and 10")
	}
	if cfg.Verification.MaxAttempts < 1 {
		return errors.New("verification max attempts must be >= 1")
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Window <= 0 {
			return errors.New("rate limit window must be positive")
		}
		if cfg.RateLimit.MaxPerWindow < 1 {
			return errors.New("rate limit budget must be >= 1")
		}
	}
	return nil
}
