// Package memory provides an in-process [store.Store] for tests and local
// development. All mutating operations hold a single mutex, which gives the
// same atomicity the engine expects from the production store.
package memory

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/fintrackr/authcore/store"
	"github.com/google/uuid"
)

type verificationKey struct {
	userID  string
	purpose store.VerificationPurpose
}

// Store is an in-memory credential store.
type Store struct {
	mu            sync.Mutex
	users         map[string]store.User
	emailIndex    map[string]string
	verifications map[verificationKey]store.VerificationRecord
	sessions      map[string]store.RefreshSession
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:         make(map[string]store.User),
		emailIndex:    make(map[string]string),
		verifications: make(map[verificationKey]store.VerificationRecord),
		sessions:      make(map[string]store.RefreshSession),
	}
}

func (s *Store) CreateUser(_ context.Context, user store.User) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emailIndex[user.Email]; exists {
		return store.User{}, store.ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	s.users[user.ID] = user
	s.emailIndex[user.Email] = user.ID
	return user, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emailIndex[email]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) UserByID(_ context.Context, id string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = hash
	s.users[userID] = user
	return nil
}

func (s *Store) RecordLoginFailure(_ context.Context, userID string, maxAttempts int, lockFor time.Duration) (store.LockoutUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return store.LockoutUpdate{}, store.ErrNotFound
	}

	user.FailedLogins++
	if user.FailedLogins >= maxAttempts {
		user.LockedUntil = time.Now().Add(lockFor)
	}
	s.users[userID] = user

	return store.LockoutUpdate{
		FailedLogins: user.FailedLogins,
		LockedUntil:  user.LockedUntil,
	}, nil
}

func (s *Store) RecordLoginSuccess(_ context.Context, userID string, at time.Time, clientIP string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.FailedLogins = 0
	user.LockedUntil = time.Time{}
	user.LastLogin = at
	user.LastLoginIP = clientIP
	s.users[userID] = user
	return nil
}

func (s *Store) UpsertVerification(_ context.Context, rec store.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[rec.UserID]; !ok {
		return store.ErrNotFound
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.verifications[verificationKey{rec.UserID, rec.Purpose}] = rec
	return nil
}

func (s *Store) ConsumeVerification(_ context.Context, userID string, purpose store.VerificationPurpose, secretHash [32]byte, byCode bool, maxAttempts int) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := verificationKey{userID, purpose}
	rec, ok := s.verifications[key]
	if !ok {
		return store.User{}, store.ErrVerificationNotFound
	}

	if time.Now().After(rec.ExpiresAt) {
		delete(s.verifications, key)
		return store.User{}, store.ErrVerificationNotFound
	}

	expected := rec.TokenHash
	if byCode {
		expected = rec.CodeHash
	}
	if subtle.ConstantTimeCompare(expected[:], secretHash[:]) != 1 {
		rec.Attempts++
		if rec.Attempts >= maxAttempts {
			delete(s.verifications, key)
			return store.User{}, store.ErrVerificationAttempts
		}
		s.verifications[key] = rec
		return store.User{}, store.ErrVerificationMismatch
	}

	delete(s.verifications, key)

	user, ok := s.users[userID]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	if purpose == store.PurposeEmailVerification {
		user.Status = store.StatusActive
		user.EmailVerified = true
		s.users[userID] = user
	}
	return user, nil
}

// SetStatus force-sets an account's lifecycle status. Test fixture hook; the
// engine only ever changes status through ConsumeVerification.
func (s *Store) SetStatus(userID string, status store.AccountStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return
	}
	user.Status = status
	s.users[userID] = user
}

func (s *Store) SaveRefreshSession(_ context.Context, session store.RefreshSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.UserID] = session
	return nil
}

func (s *Store) RotateRefreshSession(_ context.Context, userID string, oldHash, newHash [32]byte, now time.Time) (store.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return store.RefreshSession{}, store.ErrRefreshMismatch
	}
	if now.After(session.ExpiresAt) {
		delete(s.sessions, userID)
		return store.RefreshSession{}, store.ErrRefreshMismatch
	}
	if subtle.ConstantTimeCompare(session.TokenHash[:], oldHash[:]) != 1 {
		return store.RefreshSession{}, store.ErrRefreshMismatch
	}

	// The session keeps its own lifetime class across rotations.
	lifetime := session.ExpiresAt.Sub(session.IssuedAt)
	session.TokenHash = newHash
	session.IssuedAt = now
	session.ExpiresAt = now.Add(lifetime)
	s.sessions[userID] = session
	return session, nil
}

func (s *Store) DeleteRefreshSession(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}
