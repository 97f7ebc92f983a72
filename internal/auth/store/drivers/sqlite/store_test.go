package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/auth/domain"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store"
	"github.com/gatehouse-dev/gatehouse/pkg/idx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, email string) domain.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func seedSession(t *testing.T, s *Store, userID string) domain.Session {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	sess := domain.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		ExpiresAt:    now.Add(time.Hour),
		LastAccessAt: now,
		Active:       true,
		IPAddress:    "203.0.113.9",
		UserAgent:    "test-agent",
		CreatedAt:    now,
	}
	require.NoError(t, s.Sessions().CreateSession(context.Background(), sess))
	return sess
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestUsersCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "alice@example.com")

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)
	require.Equal(t, domain.RoleUser, got.Role)
	require.Equal(t, domain.StatusActive, got.Status)
	require.True(t, got.IsActive)
	require.False(t, got.EmailVerified)
	require.Nil(t, got.MFAEnabled)
	require.Nil(t, got.MFASecret)

	t.Run("email lookup is case insensitive", func(t *testing.T) {
		got, err := s.Users().GetUserByEmail(ctx, "ALICE@Example.COM")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("duplicate email refused", func(t *testing.T) {
		dup := u
		dup.ID = idx.New().String()
		err := s.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Users().GetUserByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("password update", func(t *testing.T) {
		require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, "new-hash"))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", got.PasswordHash)

		require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "missing", "x"), store.ErrNotFound)
	})

	t.Run("email verification", func(t *testing.T) {
		require.NoError(t, s.Users().SetEmailVerified(ctx, u.ID))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.EmailVerified)
	})
}

func TestUsersMFALifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "alice@example.com")

	require.NoError(t, s.Users().UpdateMFASecret(ctx, u.ID, "JBSWY3DPEHPK3PXP"))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MFASecret)
	require.Equal(t, "JBSWY3DPEHPK3PXP", *got.MFASecret)
	require.Nil(t, got.MFAEnabled, "storing a secret must not enable MFA yet")

	require.NoError(t, s.Users().EnableMFA(ctx, u.ID))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MFAEnabled)

	require.NoError(t, s.Users().DisableMFA(ctx, u.ID))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.MFAEnabled)
	require.Nil(t, got.MFASecret)
}

func TestSessionsCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "alice@example.com")
	sess := seedSession(t, s, u.ID)

	got, err := s.Sessions().GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)
	require.True(t, got.Active)
	require.Equal(t, "203.0.113.9", got.IPAddress)

	t.Run("touch", func(t *testing.T) {
		at := time.Now().UTC().Add(time.Minute).Truncate(time.Second)
		require.NoError(t, s.Sessions().TouchSession(ctx, sess.ID, at))

		got, err := s.Sessions().GetSessionByID(ctx, sess.ID)
		require.NoError(t, err)
		require.True(t, got.LastAccessAt.Equal(at))
	})

	t.Run("revoke", func(t *testing.T) {
		require.NoError(t, s.Sessions().RevokeSession(ctx, sess.ID))

		got, err := s.Sessions().GetSessionByID(ctx, sess.ID)
		require.NoError(t, err)
		require.False(t, got.Active)
	})

	t.Run("revoke all for user", func(t *testing.T) {
		a := seedSession(t, s, u.ID)
		b := seedSession(t, s, u.ID)

		require.NoError(t, s.Sessions().RevokeUserSessions(ctx, u.ID))

		for _, id := range []string{a.ID, b.ID} {
			got, err := s.Sessions().GetSessionByID(ctx, id)
			require.NoError(t, err)
			require.False(t, got.Active)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Sessions().GetSessionByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "alice@example.com")
	live := seedSession(t, s, u.ID)

	now := time.Now().UTC().Truncate(time.Second)
	stale := domain.Session{
		ID:           uuid.NewString(),
		UserID:       u.ID,
		ExpiresAt:    now.Add(-time.Hour),
		LastAccessAt: now.Add(-2 * time.Hour),
		Active:       true,
		CreatedAt:    now.Add(-2 * time.Hour),
	}
	require.NoError(t, s.Sessions().CreateSession(ctx, stale))

	require.NoError(t, s.Sessions().DeleteExpiredSessions(ctx, now))

	_, err := s.Sessions().GetSessionByID(ctx, stale.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Sessions().GetSessionByID(ctx, live.ID)
	require.NoError(t, err)
}

func TestRefreshTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "alice@example.com")
	sess := seedSession(t, s, u.ID)

	now := time.Now().UTC().Truncate(time.Second)
	rec := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		SessionID: sess.ID,
		TokenHash: "hash-1",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rec))

	got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)
	require.False(t, got.Revoked)

	t.Run("unknown hash", func(t *testing.T) {
		_, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("revoke one", func(t *testing.T) {
		require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "hash-1", "rotated", now))

		got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
		require.NoError(t, err)
		require.True(t, got.Revoked)
		require.Equal(t, "rotated", got.RevokedReason)
		require.NotNil(t, got.RevokedAt)
	})

	t.Run("revoke by session", func(t *testing.T) {
		for _, hash := range []string{"hash-2", "hash-3"} {
			rec := domain.RefreshToken{
				ID:        idx.New().String(),
				UserID:    u.ID,
				SessionID: sess.ID,
				TokenHash: hash,
				ExpiresAt: now.Add(time.Hour),
				CreatedAt: now,
			}
			require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rec))
		}

		require.NoError(t, s.RefreshTokens().RevokeSessionRefreshTokens(ctx, sess.ID, "sign_out", now))

		for _, hash := range []string{"hash-2", "hash-3"} {
			got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
			require.NoError(t, err)
			require.True(t, got.Revoked)
			require.Equal(t, "sign_out", got.RevokedReason)
		}
	})

	t.Run("delete expired", func(t *testing.T) {
		expired := domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			SessionID: sess.ID,
			TokenHash: "hash-old",
			ExpiresAt: now.Add(-time.Hour),
			CreatedAt: now.Add(-2 * time.Hour),
		}
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, expired))
		require.NoError(t, s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now))

		_, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-old")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
