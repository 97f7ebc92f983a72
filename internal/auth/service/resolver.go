package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/auth/domain"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store"
	"github.com/gatehouse-dev/gatehouse/pkg/slogx"
)

// Resolver turns a request's bearer token into an AuthContext: verify the
// token, then load the referenced user and session from the store. These
// store lookups are the only I/O in the hot path.
type Resolver struct {
	Tokens *TokenService
	Store  store.Store

	now func() time.Time
}

func NewResolver(tokens *TokenService, st store.Store) *Resolver {
	return &Resolver{Tokens: tokens, Store: st, now: time.Now}
}

// Resolve authenticates the Authorization header value. A missing or
// malformed header is ErrUnauthorized; token-shape failures propagate the
// jwtx sentinel so callers can tell expiry from invalidity; a well-formed
// token whose session is gone or dead is ErrSessionInvalid.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (domain.AuthContext, error) {
	raw, ok := bearerToken(authorization)
	if !ok {
		return domain.AuthContext{}, ErrUnauthorized
	}

	claims, err := r.Tokens.VerifyAccessToken(raw)
	if err != nil {
		return domain.AuthContext{}, err
	}

	user, err := r.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthContext{}, ErrUnauthorized
		}
		return domain.AuthContext{}, err
	}

	now := r.now().UTC()

	session, err := r.Store.Sessions().GetSessionByID(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthContext{}, ErrSessionInvalid
		}
		return domain.AuthContext{}, err
	}
	if !session.Valid(now) {
		return domain.AuthContext{}, ErrSessionInvalid
	}

	// Best effort; a failed touch must not fail the request.
	if err := r.Store.Sessions().TouchSession(ctx, session.ID, now); err != nil {
		slogx.FromContext(ctx).Warn("failed to touch session",
			slog.String("session_id", session.ID), "err", err)
	} else {
		session.LastAccessAt = now
	}

	return domain.AuthContext{User: user, Session: session}, nil
}

// ResolveOptional is the lenient variant for endpoints with mixed
// public/authenticated behavior: an absent header yields no context and no
// error, while a present-but-bad token still fails.
func (r *Resolver) ResolveOptional(ctx context.Context, authorization string) (*domain.AuthContext, error) {
	if strings.TrimSpace(authorization) == "" {
		return nil, nil
	}

	ac, err := r.Resolve(ctx, authorization)
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

func bearerToken(authorization string) (string, bool) {
	if !strings.HasPrefix(authorization, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer"))
	return token, token != ""
}

/* Authorization predicates.

All of them fail closed: a nil context is ErrUnauthorized before any role
logic runs. Callers resolve authentication first; after that the predicates
are independent and compose in any order. */

// RequireRole refuses callers whose role is not in the allowed set.
func RequireRole(ac *domain.AuthContext, allowed ...domain.Role) error {
	if ac == nil {
		return ErrUnauthorized
	}
	if slices.Contains(allowed, ac.User.Role) {
		return nil
	}
	return ErrForbidden
}

// RequireAdmin admits ADMIN and OWNER.
func RequireAdmin(ac *domain.AuthContext) error {
	return RequireRole(ac, domain.RoleAdmin, domain.RoleOwner)
}

// RequireOwner admits OWNER only.
func RequireOwner(ac *domain.AuthContext) error {
	return RequireRole(ac, domain.RoleOwner)
}

// RequireOwnershipOrAdmin admits admins outright; everyone else must be the
// resource owner.
func RequireOwnershipOrAdmin(ac *domain.AuthContext, resourceOwnerID string) error {
	if ac == nil {
		return ErrUnauthorized
	}
	if ac.User.Role == domain.RoleAdmin || ac.User.Role == domain.RoleOwner {
		return nil
	}
	if ac.User.ID == resourceOwnerID {
		return nil
	}
	return ErrForbidden
}

// RequireEmailVerified refuses accounts that never confirmed their address.
func RequireEmailVerified(ac *domain.AuthContext) error {
	if ac == nil {
		return ErrUnauthorized
	}
	if !ac.User.EmailVerified {
		return ErrEmailNotVerified
	}
	return nil
}

// RequireActiveAccount refuses suspended and deactivated accounts.
func RequireActiveAccount(ac *domain.AuthContext) error {
	if ac == nil {
		return ErrUnauthorized
	}
	if !ac.User.CanAuthenticate() {
		return ErrAccountDisabled
	}
	return nil
}

// RequireValidSession re-checks the session's expiry and active flag.
func RequireValidSession(ac *domain.AuthContext) error {
	if ac == nil {
		return ErrUnauthorized
	}
	if !ac.Session.Valid(time.Now().UTC()) {
		return ErrSessionInvalid
	}
	return nil
}
