package service

import (
	"context"
	"testing"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/auth/domain"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store/memory"
	"github.com/gatehouse-dev/gatehouse/pkg/cryptox"
	"github.com/gatehouse-dev/gatehouse/pkg/idx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "gatehouse-test"
	testPassword = "correct horse battery staple"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()

	ts, err := NewTokenService(TokenConfig{
		AccessSecret:       "access-secret-for-tests",
		RefreshSecret:      "refresh-secret-for-tests",
		VerificationSecret: "verification-secret-for-tests",
		Issuer:             testIssuer,
	})
	require.NoError(t, err)
	return ts
}

type testEnv struct {
	store  *memory.Store
	tokens *TokenService
	mfa    *MFAService
	auth   *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := memory.New()
	tokens := newTestTokenService(t)
	mfa := NewMFAService(testIssuer)

	return &testEnv{
		store:  st,
		tokens: tokens,
		mfa:    mfa,
		auth:   NewAuthService(st, tokens, mfa),
	}
}

// seedUser creates an active, verified USER account with testPassword.
func (e *testEnv) seedUser(t *testing.T, email string, mutate ...func(*domain.User)) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	now := time.Now().UTC()
	u := domain.User{
		ID:            idx.New().String(),
		Email:         email,
		PasswordHash:  hash,
		Role:          domain.RoleUser,
		Status:        domain.StatusActive,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, fn := range mutate {
		fn(&u)
	}

	require.NoError(t, e.store.Users().CreateUser(context.Background(), u))
	return u
}
