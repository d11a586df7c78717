// Package postgres implements [store.Store] on PostgreSQL via pgx. Every
// read-modify-write transition the engine relies on is expressed as a single
// conditional UPDATE or a transaction, never as application-level
// read-then-write.
package postgres

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/fintrackr/authcore/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Store is a PostgreSQL-backed credential store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for the given DSN and pings it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

const userColumns = `id, email, password_hash, first_name, last_name, kind, company_name,
	is_admin, status, email_verified, failed_logins, locked_until, last_login, last_login_ip, created_at`

func scanUser(row pgx.Row) (store.User, error) {
	var (
		u           store.User
		lockedUntil *time.Time
		lastLogin   *time.Time
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Kind, &u.CompanyName,
		&u.IsAdmin, &u.Status, &u.EmailVerified, &u.FailedLogins, &lockedUntil, &lastLogin,
		&u.LastLoginIP, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.User{}, store.ErrNotFound
		}
		return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if lockedUntil != nil {
		u.LockedUntil = *lockedUntil
	}
	if lastLogin != nil {
		u.LastLogin = *lastLogin
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, user store.User) (store.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, kind, company_name,
			is_admin, status, email_verified, failed_logins, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11)`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Kind,
		user.CompanyName, user.IsAdmin, user.Status, user.EmailVerified, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.User{}, store.ErrDuplicateEmail
		}
		return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (store.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *Store) UserByID(ctx context.Context, id string) (store.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, hash)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) RecordLoginFailure(ctx context.Context, userID string, maxAttempts int, lockFor time.Duration) (store.LockoutUpdate, error) {
	// Increment and threshold check happen in one UPDATE so two racing
	// failures cannot both observe a pre-threshold count.
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET failed_logins = failed_logins + 1,
		    locked_until = CASE WHEN failed_logins + 1 >= $2 THEN $3 ELSE locked_until END
		WHERE id = $1
		RETURNING failed_logins, locked_until`,
		userID, maxAttempts, time.Now().Add(lockFor),
	)

	var (
		update      store.LockoutUpdate
		lockedUntil *time.Time
	)
	if err := row.Scan(&update.FailedLogins, &lockedUntil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.LockoutUpdate{}, store.ErrNotFound
		}
		return store.LockoutUpdate{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if lockedUntil != nil {
		update.LockedUntil = *lockedUntil
	}
	return update, nil
}

func (s *Store) RecordLoginSuccess(ctx context.Context, userID string, at time.Time, clientIP string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET failed_logins = 0, locked_until = NULL, last_login = $2, last_login_ip = $3
		WHERE id = $1`,
		userID, at, clientIP,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertVerification(ctx context.Context, rec store.VerificationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO verifications (user_id, purpose, token_hash, code_hash, expires_at, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		ON CONFLICT (user_id, purpose) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    code_hash = EXCLUDED.code_hash,
		    expires_at = EXCLUDED.expires_at,
		    attempts = 0,
		    created_at = EXCLUDED.created_at`,
		rec.UserID, rec.Purpose, rec.TokenHash[:], rec.CodeHash[:], rec.ExpiresAt, rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return store.ErrNotFound
		}
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) ConsumeVerification(ctx context.Context, userID string, purpose store.VerificationPurpose, secretHash [32]byte, byCode bool, maxAttempts int) (store.User, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	var (
		tokenHash []byte
		codeHash  []byte
		expiresAt time.Time
		attempts  int
	)
	err = tx.QueryRow(ctx, `
		SELECT token_hash, code_hash, expires_at, attempts
		FROM verifications
		WHERE user_id = $1 AND purpose = $2
		FOR UPDATE`,
		userID, purpose,
	).Scan(&tokenHash, &codeHash, &expiresAt, &attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.User{}, store.ErrVerificationNotFound
		}
		return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	deleteRecord := func() error {
		_, err := tx.Exec(ctx, `DELETE FROM verifications WHERE user_id = $1 AND purpose = $2`, userID, purpose)
		return err
	}

	if time.Now().After(expiresAt) {
		if err := deleteRecord(); err != nil {
			return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		return store.User{}, store.ErrVerificationNotFound
	}

	expected := tokenHash
	if byCode {
		expected = codeHash
	}
	if subtle.ConstantTimeCompare(expected, secretHash[:]) != 1 {
		attempts++
		if attempts >= maxAttempts {
			if err := deleteRecord(); err != nil {
				return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
			}
			if err := tx.Commit(ctx); err != nil {
				return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
			}
			return store.User{}, store.ErrVerificationAttempts
		}
		if _, err := tx.Exec(ctx, `
			UPDATE verifications SET attempts = $3
			WHERE user_id = $1 AND purpose = $2`,
			userID, purpose, attempts,
		); err != nil {
			return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		return store.User{}, store.ErrVerificationMismatch
	}

	if err := deleteRecord(); err != nil {
		return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	var row pgx.Row
	if purpose == store.PurposeEmailVerification {
		// Consume and activate are one transaction: both commit or both roll back.
		row = tx.QueryRow(ctx, `
			UPDATE users SET status = $2, email_verified = TRUE
			WHERE id = $1
			RETURNING `+userColumns, userID, store.StatusActive)
	} else {
		row = tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	}

	user, err := scanUser(row)
	if err != nil {
		return store.User{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return store.User{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return user, nil
}

func (s *Store) SaveRefreshSession(ctx context.Context, session store.RefreshSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_sessions (user_id, token_hash, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    issued_at = EXCLUDED.issued_at,
		    expires_at = EXCLUDED.expires_at`,
		session.UserID, session.TokenHash[:], session.IssuedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) RotateRefreshSession(ctx context.Context, userID string, oldHash, newHash [32]byte, now time.Time) (store.RefreshSession, error) {
	// Compare-and-swap on the stored hash: an already-rotated or revoked
	// token matches zero rows and surfaces as a reuse signal. The new
	// expiry slides by the session's own lifetime so a short session does
	// not get promoted to the remember-me window.
	row := s.pool.QueryRow(ctx, `
		UPDATE refresh_sessions
		SET token_hash = $3,
		    expires_at = $4 + (expires_at - issued_at),
		    issued_at = $4
		WHERE user_id = $1 AND token_hash = $2 AND expires_at > $4
		RETURNING user_id, token_hash, issued_at, expires_at`,
		userID, oldHash[:], newHash[:], now,
	)

	var (
		session store.RefreshSession
		hash    []byte
	)
	if err := row.Scan(&session.UserID, &hash, &session.IssuedAt, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.RefreshSession{}, store.ErrRefreshMismatch
		}
		return store.RefreshSession{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	copy(session.TokenHash[:], hash)
	return session, nil
}

func (s *Store) DeleteRefreshSession(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM refresh_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}
