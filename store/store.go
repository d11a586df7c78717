package store

import (
	"context"
	"time"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// StatusPendingVerification is an exported constant or variable used by the authentication core.
	StatusPendingVerification AccountStatus = iota
	// StatusActive is an exported constant or variable used by the authentication core.
	StatusActive
	// StatusSuspended is an exported constant or variable used by the authentication core.
	StatusSuspended
	// StatusInactive is an exported constant or variable used by the authentication core.
	StatusInactive
)

// AccountKind distinguishes personal from business accounts.
type AccountKind uint8

const (
	// KindPersonal is an exported constant or variable used by the authentication core.
	KindPersonal AccountKind = iota
	// KindBusiness is an exported constant or variable used by the authentication core.
	KindBusiness
)

// User is the identity row held by the record store. Lockout state
// (FailedLogins, LockedUntil) lives on the row and is only ever mutated
// through the atomic RecordLoginFailure / RecordLoginSuccess primitives.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	Kind          AccountKind
	CompanyName   string
	IsAdmin       bool
	Status        AccountStatus
	EmailVerified bool
	FailedLogins  int
	LockedUntil   time.Time
	LastLogin     time.Time
	LastLoginIP   string
	CreatedAt     time.Time
}

// Locked reports whether the account is under an active lockout window.
func (u User) Locked(now time.Time) bool {
	return !u.LockedUntil.IsZero() && u.LockedUntil.After(now)
}

// VerificationPurpose identifies which flow a verification record belongs to.
type VerificationPurpose uint8

const (
	// PurposeEmailVerification is an exported constant or variable used by the authentication core.
	PurposeEmailVerification VerificationPurpose = iota
	// PurposeLoginVerification is an exported constant or variable used by the authentication core.
	PurposeLoginVerification
	// PurposePasswordReset is an exported constant or variable used by the authentication core.
	PurposePasswordReset
)

func (p VerificationPurpose) String() string {
	switch p {
	case PurposeEmailVerification:
		return "email_verification"
	case PurposeLoginVerification:
		return "login_verification"
	case PurposePasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

// VerificationRecord is the single live challenge for a (user, purpose)
// pair. TokenHash and CodeHash are SHA-256 of the link token secret and the
// numeric code; the plaintext is never stored.
type VerificationRecord struct {
	UserID    string
	Purpose   VerificationPurpose
	TokenHash [32]byte
	CodeHash  [32]byte
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
}

// RefreshSession is the single active long-lived login for a user. A new
// login or rotation replaces TokenHash; the previous value never validates
// again.
type RefreshSession struct {
	UserID    string
	TokenHash [32]byte
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LockoutUpdate reports the post-increment lockout state after a failed
// password check.
type LockoutUpdate struct {
	FailedLogins int
	LockedUntil  time.Time
}

// Locked reports whether this failure tripped (or extended) the lockout.
func (u LockoutUpdate) Locked(now time.Time) bool {
	return !u.LockedUntil.IsZero() && u.LockedUntil.After(now)
}

// Store is the credential store adapter: the boundary between the engine and
// the durable record store. Every method that reads-then-writes shared state
// must execute as one atomic unit against the backing store, because two
// concurrent requests for the same user are a realistic and security
// relevant case.
type Store interface {
	// CreateUser inserts a new user row. A unique-constraint violation on
	// the normalized email returns [ErrDuplicateEmail].
	CreateUser(ctx context.Context, user User) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	// RecordLoginFailure atomically increments the failed-login counter and,
	// when the post-increment count reaches maxAttempts, sets the lockout
	// deadline in the same update. No interleaving of two concurrent
	// failures may lose an increment or miss the threshold.
	RecordLoginFailure(ctx context.Context, userID string, maxAttempts int, lockFor time.Duration) (LockoutUpdate, error)
	// RecordLoginSuccess clears the lockout state and stamps last_login and
	// the observed client fingerprint in one update.
	RecordLoginSuccess(ctx context.Context, userID string, at time.Time, clientIP string) error

	// UpsertVerification installs rec as the only live record for its
	// (user, purpose) pair, superseding any prior one.
	UpsertVerification(ctx context.Context, rec VerificationRecord) error
	// ConsumeVerification matches the presented secret hash against the live
	// record for (userID, purpose) and consumes it exactly once. For
	// [PurposeEmailVerification] the owning user transitions
	// pending_verification -> active (email_verified=true) in the same
	// atomic unit. Mismatches count against maxAttempts; expired, consumed,
	// or exhausted records return [ErrVerificationNotFound] /
	// [ErrVerificationMismatch] / [ErrVerificationAttempts].
	ConsumeVerification(ctx context.Context, userID string, purpose VerificationPurpose, secretHash [32]byte, byCode bool, maxAttempts int) (User, error)

	// SaveRefreshSession installs the session as the user's only active one.
	SaveRefreshSession(ctx context.Context, session RefreshSession) error
	// RotateRefreshSession atomically swaps oldHash for newHash, but only if
	// oldHash is the currently stored token and the session is unexpired at
	// now. The session slides by its own original lifetime
	// (ExpiresAt - IssuedAt), so a short-lived session stays short-lived
	// across rotations. Any mismatch returns [ErrRefreshMismatch] and must
	// be treated as a reuse signal.
	RotateRefreshSession(ctx context.Context, userID string, oldHash, newHash [32]byte, now time.Time) (RefreshSession, error)
	// DeleteRefreshSession revokes the user's session. Idempotent.
	DeleteRefreshSession(ctx context.Context, userID string) error
}
