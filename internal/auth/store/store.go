package store

import (
	"context"
	"errors"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface consumed by the auth core. The
// core only needs a handful of narrow operations; concrete drivers (memory,
// sqlite) implement them. These lookups are the only points in the core that
// may block on I/O.
type Store interface {
	Users() Users
	Sessions() Sessions
	RefreshTokens() RefreshTokens

	// Ping verifies the backend is reachable. Used by readiness probes.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during sign-in.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// SetEmailVerified marks the user's email address as verified.
	SetEmailVerified(ctx context.Context, userID string) error

	// UpdateMFASecret stores the TOTP secret without enabling MFA yet.
	UpdateMFASecret(ctx context.Context, userID, secret string) error

	// EnableMFA marks MFA as enabled (sets the mfa_enabled timestamp).
	EnableMFA(ctx context.Context, userID string) error

	// DisableMFA clears both the mfa_enabled timestamp and the secret.
	DisableMFA(ctx context.Context, userID string) error
}

type Sessions interface {
	// CreateSession persists a new session at sign-in.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID returns a session by id.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// TouchSession bumps last_access_at on activity.
	TouchSession(ctx context.Context, id string, at time.Time) error

	// RevokeSession marks the session inactive.
	RevokeSession(ctx context.Context, id string) error

	// RevokeUserSessions marks every session of a user inactive.
	RevokeUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions removes sessions past their expiry.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record by its SHA-256 fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken marks one record revoked with a reason.
	RevokeRefreshToken(ctx context.Context, hash, reason string, at time.Time) error

	// RevokeSessionRefreshTokens revokes every record bound to a session.
	RevokeSessionRefreshTokens(ctx context.Context, sessionID, reason string, at time.Time) error

	// DeleteExpiredRefreshTokens removes records past their expiry.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error
}
