package authcore

import "errors"

var (
	// ErrAccountExists is an exported constant or variable used by the authentication core.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication core.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is an exported constant or variable used by the authentication core.
	ErrAccountLocked = errors.New("account locked")
	// ErrEmailVerificationRequired is an exported constant or variable used by the authentication core.
	ErrEmailVerificationRequired = errors.New("email verification required")
	// ErrAccountNotActive is an exported constant or variable used by the authentication core.
	ErrAccountNotActive = errors.New("account not active")
	// ErrStepUpRequired is an exported constant or variable used by the authentication core.
	ErrStepUpRequired = errors.New("login verification required")
	// ErrInvalidVerificationCode is an exported constant or variable used by the authentication core.
	ErrInvalidVerificationCode = errors.New("invalid or expired verification code")
	// ErrTokenInvalid is an exported constant or variable used by the authentication core.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrRateLimited is an exported constant or variable used by the authentication core.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication core.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication core.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidRequest is an exported constant or variable used by the authentication core.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEngineNotReady is an exported constant or variable used by the authentication core.
	ErrEngineNotReady = errors.New("engine not initialized")
)
