package service

import (
	"fmt"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/auth/domain"
	"github.com/gatehouse-dev/gatehouse/pkg/jwtx"
)

// TokenConfig carries the secrets and lifetimes for the three token classes.
// Access and refresh use independent secret material so a compromise of one
// domain cannot mint tokens for the other.
type TokenConfig struct {
	AccessSecret       string
	RefreshSecret      string
	VerificationSecret string

	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration

	Issuer   string
	Audience []string
}

// TokenService issues and verifies access, refresh, and verification
// tokens. It is stateless beyond configuration and safe for concurrent use.
type TokenService struct {
	access       *jwtx.HS256
	refresh      *jwtx.HS256
	verification *jwtx.HS256

	accessTTL       time.Duration
	refreshTTL      time.Duration
	verificationTTL time.Duration

	issuer   string
	audience []string

	now func() time.Time
}

// NewTokenService validates the config and builds the three signing domains.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = jwtx.DefaultVerificationTokenTTL
	}

	opts := jwtx.VerifyOptions{Issuer: cfg.Issuer, Audience: cfg.Audience}

	access, err := jwtx.NewHS256(cfg.AccessSecret, opts)
	if err != nil {
		return nil, fmt.Errorf("access domain: %w", err)
	}
	refresh, err := jwtx.NewHS256(cfg.RefreshSecret, opts)
	if err != nil {
		return nil, fmt.Errorf("refresh domain: %w", err)
	}
	verification, err := jwtx.NewHS256(cfg.VerificationSecret, opts)
	if err != nil {
		return nil, fmt.Errorf("verification domain: %w", err)
	}

	return &TokenService{
		access:          access,
		refresh:         refresh,
		verification:    verification,
		accessTTL:       cfg.AccessTTL,
		refreshTTL:      cfg.RefreshTTL,
		verificationTTL: cfg.VerificationTTL,
		issuer:          cfg.Issuer,
		audience:        cfg.Audience,
		now:             time.Now,
	}, nil
}

// IssueAccessToken mints a short-lived access token bound to the user's
// current role and session.
func (s *TokenService) IssueAccessToken(user domain.User, sessionID string) (string, error) {
	claims := jwtx.NewClaims(user.ID, s.accessTTL, s.issuer, s.audience, s.now().UTC())
	claims.SID = sessionID
	claims.Role = string(user.Role)

	token, err := s.access.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	return token, nil
}

// IssueRefreshToken mints a long-lived refresh token for the same session.
func (s *TokenService) IssueRefreshToken(userID, sessionID string) (string, error) {
	claims := jwtx.NewClaims(userID, s.refreshTTL, s.issuer, s.audience, s.now().UTC())
	claims.SID = sessionID
	claims.Kind = jwtx.KindRefresh

	token, err := s.refresh.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return token, nil
}

// VerifyAccessToken validates signature, issuer, audience, and expiry, and
// rejects tokens from the refresh domain even if they were somehow signed
// with the access secret.
func (s *TokenService) VerifyAccessToken(token string) (jwtx.Claims, error) {
	claims, err := s.access.Verify(token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if claims.Kind != "" {
		return jwtx.Claims{}, jwtx.ErrWrongTokenType
	}
	return claims, nil
}

// VerifyRefreshToken validates the token against the refresh domain and
// checks the embedded kind, so a well-formed access token presented as a
// refresh token is still refused.
func (s *TokenService) VerifyRefreshToken(token string) (userID, sessionID string, err error) {
	claims, err := s.refresh.Verify(token)
	if err != nil {
		return "", "", err
	}
	if claims.Kind != jwtx.KindRefresh {
		return "", "", jwtx.ErrWrongTokenType
	}
	return claims.Subject, claims.SID, nil
}

// IssueVerificationToken mints a single-purpose token for flows like email
// verification and password reset. ttl <= 0 uses the configured default.
func (s *TokenService) IssueVerificationToken(identifier, purpose string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.verificationTTL
	}

	claims := jwtx.NewClaims(identifier, ttl, s.issuer, s.audience, s.now().UTC())
	claims.Identifier = identifier
	claims.Purpose = purpose

	token, err := s.verification.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to issue verification token: %w", err)
	}
	return token, nil
}

// VerifyVerificationToken validates the token and requires its embedded
// purpose to match the caller's expectation. This is what stops a password
// reset token from being replayed as an email verification.
func (s *TokenService) VerifyVerificationToken(token, expectedPurpose string) (identifier string, err error) {
	claims, err := s.verification.Verify(token)
	if err != nil {
		return "", err
	}
	if claims.Purpose != expectedPurpose {
		return "", ErrPurposeMismatch
	}
	return claims.Identifier, nil
}

// IsExpired decodes the expiry claim without verifying the signature. It is
// an advisory helper for clients; authorization always goes through Verify.
func (s *TokenService) IsExpired(token string) bool {
	claims, err := jwtx.DecodeUnverified(token)
	if err != nil {
		return true
	}
	return claims.Expired(s.now().UTC())
}
