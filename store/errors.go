package store

import "errors"

var (
	// ErrNotFound is an exported constant or variable used by the authentication core.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is an exported constant or variable used by the authentication core.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrVerificationNotFound is an exported constant or variable used by the authentication core.
	ErrVerificationNotFound = errors.New("verification record not found")
	// ErrVerificationMismatch is an exported constant or variable used by the authentication core.
	ErrVerificationMismatch = errors.New("verification secret mismatch")
	// ErrVerificationAttempts is an exported constant or variable used by the authentication core.
	ErrVerificationAttempts = errors.New("verification attempts exceeded")
	// ErrRefreshMismatch is an exported constant or variable used by the authentication core.
	ErrRefreshMismatch = errors.New("refresh session mismatch")
	// ErrUnavailable is an exported constant or variable used by the authentication core.
	ErrUnavailable = errors.New("record store unavailable")
)
