package authcore

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/fintrackr/authcore/internal/audit"
	"github.com/fintrackr/authcore/store"
)

// AccountStatus is re-exported from the store boundary for caller convenience.
type AccountStatus = store.AccountStatus

const (
	// StatusPendingVerification is an exported constant or variable used by the authentication core.
	StatusPendingVerification = store.StatusPendingVerification
	// StatusActive is an exported constant or variable used by the authentication core.
	StatusActive = store.StatusActive
	// StatusSuspended is an exported constant or variable used by the authentication core.
	StatusSuspended = store.StatusSuspended
	// StatusInactive is an exported constant or variable used by the authentication core.
	StatusInactive = store.StatusInactive
)

// AccountKind is re-exported from the store boundary for caller convenience.
type AccountKind = store.AccountKind

const (
	// KindPersonal is an exported constant or variable used by the authentication core.
	KindPersonal = store.KindPersonal
	// KindBusiness is an exported constant or variable used by the authentication core.
	KindBusiness = store.KindBusiness
)

// UserProfile is the sanitized account view returned to callers. It never
// carries the password hash or lockout counters.
type UserProfile struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	Kind          AccountKind
	CompanyName   string
	IsAdmin       bool
	Status        AccountStatus
	EmailVerified bool
	LastLogin     time.Time
	CreatedAt     time.Time
}

func profileFromUser(u store.User) UserProfile {
	return UserProfile{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Kind:          u.Kind,
		CompanyName:   u.CompanyName,
		IsAdmin:       u.IsAdmin,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
	}
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Kind        AccountKind
	CompanyName string
}

// RegisterResult is returned by [Engine.Register]. Registration never issues
// tokens; the account starts in pending verification.
type RegisterResult struct {
	UserID string
	Status AccountStatus
}

// LoginRequest is the input for [Engine.Login]. Code carries an optional
// step-up verification code when the caller already holds one.
type LoginRequest struct {
	Email      string
	Password   string
	Code       string
	RememberMe bool
}

// TokenPair bundles a short-lived access token with the long-lived refresh
// token that rotates on use.
type TokenPair struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// LoginResult is returned by [Engine.Login] and [Engine.ConfirmLogin]. When
// StepUpRequired is set, Challenge holds the continuation token binding the
// pending login and no tokens are issued.
type LoginResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string

	StepUpRequired bool
	Challenge      string

	User UserProfile
}

// MessageKind identifies the template a [Notifier] should render.
type MessageKind string

const (
	// MessageEmailVerification is an exported constant or variable used by the authentication core.
	MessageEmailVerification MessageKind = "email_verification"
	// MessageLoginVerification is an exported constant or variable used by the authentication core.
	MessageLoginVerification MessageKind = "login_verification"
	// MessagePasswordReset is an exported constant or variable used by the authentication core.
	MessagePasswordReset MessageKind = "password_reset"
	// MessageWelcome is an exported constant or variable used by the authentication core.
	MessageWelcome MessageKind = "welcome"
	// MessageAccountLocked is an exported constant or variable used by the authentication core.
	MessageAccountLocked MessageKind = "account_locked"
)

// Message is the outbound notification payload. The core never inspects or
// renders email content; Params carries the raw material (codes, links).
type Message struct {
	Kind   MessageKind
	UserID string
	Email  string
	Params map[string]string
}

// Notifier delivers outbound messages. Calls are fire-and-forget relative to
// the request that triggered them: the engine logs failures and never blocks
// or retries inline.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NoOpNotifier discards all messages.
type NoOpNotifier struct{}

// Send describes the send operation and its observable behavior.
func (NoOpNotifier) Send(context.Context, Message) error { return nil }

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
