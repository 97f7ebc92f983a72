package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/auth/domain"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store"
	"github.com/gatehouse-dev/gatehouse/pkg/cryptox"
	"github.com/gatehouse-dev/gatehouse/pkg/idx"
	"github.com/gatehouse-dev/gatehouse/pkg/slogx"
	"github.com/google/uuid"
)

const (
	// DefaultSessionTTL bounds how long a session may live regardless of
	// refresh activity.
	DefaultSessionTTL = 30 * 24 * time.Hour

	revokeReasonRotated = "rotated"
	revokeReasonSignOut = "sign_out"
	revokeReasonReuse   = "reuse_detected"
	revokeReasonReset   = "password_reset"
)

// AuthService implements the authentication flows that sit on top of the
// token/session core: sign-in, refresh rotation, sign-out, and the
// verification-token flows for email confirmation and password reset.
type AuthService struct {
	Store  store.Store
	Tokens *TokenService
	MFA    *MFAService

	SessionTTL time.Duration

	now func() time.Time
}

func NewAuthService(st store.Store, tokens *TokenService, mfa *MFAService) *AuthService {
	return &AuthService{
		Store:      st,
		Tokens:     tokens,
		MFA:        mfa,
		SessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}
}

// SignUp registers a new account. The account starts PENDING until the
// email address is verified; the returned token is the verification token
// to deliver to that address. Duplicate emails surface as
// store.ErrAlreadyExists.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (domain.User, string, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusPending,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return domain.User{}, "", err
	}

	token, err := s.Tokens.IssueVerificationToken(user.Email, domain.PurposeEmailVerify, 0)
	if err != nil {
		return domain.User{}, "", err
	}

	slogx.FromContext(ctx).Info("account registered", slog.String("user_id", user.ID))
	return user, token, nil
}

// SignIn authenticates a password (and, when enrolled, a TOTP code),
// creates a session, and returns a token pair. Unknown accounts and wrong
// passwords produce the same error so the response does not reveal which
// addresses exist.
func (s *AuthService) SignIn(ctx context.Context, email, password, mfaCode, ip, userAgent string) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same work as a real verification so response time
			// does not distinguish unknown accounts.
			_ = cryptox.VerifyPassword(password, decoyHash)
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("sign-in password mismatch", slog.String("user_id", user.ID))
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		return domain.TokenPair{}, ErrAccountDisabled
	}

	if user.MFAEnabled != nil {
		if mfaCode == "" {
			return domain.TokenPair{}, ErrMFARequired
		}
		if user.MFASecret == nil {
			return domain.TokenPair{}, ErrMFANotEnabled
		}
		if err := s.MFA.VerifyCode(user.ID, *user.MFASecret, mfaCode); err != nil {
			return domain.TokenPair{}, err
		}
	}

	now := s.now().UTC()
	session := domain.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		ExpiresAt:    now.Add(s.SessionTTL),
		LastAccessAt: now,
		Active:       true,
		IPAddress:    ip,
		UserAgent:    userAgent,
		CreatedAt:    now,
	}
	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to persist session: %w", err)
	}

	pair, err := s.issuePair(ctx, user, session.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	log.Info("sign-in succeeded",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
	)
	return pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued under the same session. Presenting an already-revoked
// token revokes the whole session's tokens, since it means the token leaked
// or the client replayed an old one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	userID, sessionID, err := s.Tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	now := s.now().UTC()
	hash := cryptox.SHA256Hex(refreshToken)

	record, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrUnauthorized
		}
		return domain.TokenPair{}, err
	}

	if record.Revoked {
		slogx.FromContext(ctx).Warn("revoked refresh token presented",
			slog.String("session_id", sessionID))
		_ = s.Store.RefreshTokens().RevokeSessionRefreshTokens(ctx, sessionID, revokeReasonReuse, now)
		return domain.TokenPair{}, ErrUnauthorized
	}

	session, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrSessionInvalid
		}
		return domain.TokenPair{}, err
	}
	if !session.Valid(now) {
		return domain.TokenPair{}, ErrSessionInvalid
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrUnauthorized
		}
		return domain.TokenPair{}, err
	}
	if !user.CanAuthenticate() {
		return domain.TokenPair{}, ErrAccountDisabled
	}

	if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, hash, revokeReasonRotated, now); err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to revoke rotated token: %w", err)
	}
	_ = s.Store.Sessions().TouchSession(ctx, session.ID, now)

	return s.issuePair(ctx, user, session.ID)
}

// SignOut invalidates the session and revokes every refresh token bound to
// it.
func (s *AuthService) SignOut(ctx context.Context, ac domain.AuthContext) error {
	now := s.now().UTC()

	if err := s.Store.Sessions().RevokeSession(ctx, ac.Session.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return s.Store.RefreshTokens().RevokeSessionRefreshTokens(ctx, ac.Session.ID, revokeReasonSignOut, now)
}

// RequestPasswordReset mints a password-reset token for the account.
// Delivery (email) is the embedding service's concern.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return s.Tokens.IssueVerificationToken(user.Email, domain.PurposePasswordReset, 0)
}

// ResetPassword consumes a password-reset token, replaces the password, and
// invalidates every session so stolen credentials stop working at once.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, err := s.Tokens.VerifyVerificationToken(token, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	if err := s.Store.Sessions().RevokeUserSessions(ctx, user.ID); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password reset completed", slog.String("user_id", user.ID))
	return nil
}

// RequestEmailVerification mints an email-verify token for the account.
func (s *AuthService) RequestEmailVerification(ctx context.Context, email string) (string, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user.EmailVerified {
		return "", store.ErrAlreadyExists
	}
	return s.Tokens.IssueVerificationToken(user.Email, domain.PurposeEmailVerify, 0)
}

// VerifyEmail consumes an email-verify token and marks the address
// confirmed.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	email, err := s.Tokens.VerifyVerificationToken(token, domain.PurposeEmailVerify)
	if err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	return s.Store.Users().SetEmailVerified(ctx, user.ID)
}

// ChangePassword replaces the password for an authenticated user after
// re-checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, ac domain.AuthContext, current, newPassword string) error {
	if err := cryptox.VerifyPassword(current, ac.User.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.Store.Users().UpdatePasswordHash(ctx, ac.User.ID, hash)
}

func (s *AuthService) issuePair(ctx context.Context, user domain.User, sessionID string) (domain.TokenPair, error) {
	access, err := s.Tokens.IssueAccessToken(user, sessionID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Tokens.IssueRefreshToken(user.ID, sessionID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	now := s.now().UTC()
	record := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		SessionID: sessionID,
		TokenHash: cryptox.SHA256Hex(refresh),
		ExpiresAt: now.Add(s.Tokens.refreshTTL),
		CreatedAt: now,
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, record); err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Tokens.accessTTL.Seconds()),
	}, nil
}

// decoyHash is a valid Argon2id hash of random material, verified against
// sign-in attempts for unknown accounts to equalize timing.
const decoyHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$ZaV0V3bGJkaW9uZ2VzdGFsdHdvcmtzaGFkb3dzcGFu"
