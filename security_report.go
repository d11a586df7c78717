package authcore

import "time"

type SecurityReport struct {
	SigningAlgorithm    string
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	RefreshShortTTL     time.Duration
	Argon2              PasswordConfigReport
	LockoutMaxAttempts  int
	LockoutDuration     time.Duration
	StepUpEnabled       bool
	StepUpInactivity    time.Duration
	StepUpOnNewClientIP bool
	EmailTTL            time.Duration
	LoginCodeTTL        time.Duration
	ResetTTL            time.Duration
	SendBudgetActive    bool
	SendBudgetWindow    time.Duration
	SendBudgetMax       int
}

// PasswordConfigReport contains the Argon2 parameters active in the engine.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport returns a read-only snapshot of the active security policy
// for operational introspection. It never exposes key material.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		SigningAlgorithm: e.config.JWT.SigningMethod,
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.Refresh.TTL,
		RefreshShortTTL:  e.config.Refresh.ShortTTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		LockoutMaxAttempts:  e.config.Lockout.MaxAttempts,
		LockoutDuration:     e.config.Lockout.LockDuration,
		StepUpEnabled:       e.config.StepUp.Enabled,
		StepUpInactivity:    e.config.StepUp.AfterInactivity,
		StepUpOnNewClientIP: e.config.StepUp.OnNewClientIP,
		EmailTTL:            e.config.Verification.EmailTTL,
		LoginCodeTTL:        e.config.Verification.LoginTTL,
		ResetTTL:            e.config.Verification.ResetTTL,
		SendBudgetActive:    e.config.RateLimit.Enabled,
		SendBudgetWindow:    e.config.RateLimit.Window,
		SendBudgetMax:       e.config.RateLimit.MaxPerWindow,
	}
}
