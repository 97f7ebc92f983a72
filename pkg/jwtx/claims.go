package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. These are sensible security defaults and can
// be overridden per token class via configuration.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived for security - typical range is 15m to 1h.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Longer-lived for user convenience - typical range is 7d to 30d.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// DefaultVerificationTokenTTL is the default lifetime for single-purpose
	// verification tokens (email verify, password reset).
	DefaultVerificationTokenTTL = time.Hour
)

// KindRefresh is the Kind claim value stamped onto refresh tokens. Access
// tokens carry no kind, which is what lets the verifier tell the two
// domains apart even when both signatures check out.
const KindRefresh = "refresh"

// Claims are the token claims used across the service. Custom fields are
// additive to preserve compatibility for later.
type Claims struct {
	jwt.RegisteredClaims

	/* Custom fields */

	// SID is the session id the token is bound to.
	SID string `json:"sid,omitempty"`

	// Role is the authenticated user's role at issuance time.
	Role string `json:"role,omitempty"`

	// Kind distinguishes the refresh domain ("refresh"). Empty for access
	// tokens.
	Kind string `json:"kind,omitempty"`

	// Purpose names the single use a verification token is valid for,
	// e.g. "email_verify" or "password_reset".
	Purpose string `json:"purpose,omitempty"`

	// Identifier carries the subject of a verification token (typically an
	// email address), separate from the registered sub claim.
	Identifier string `json:"identifier,omitempty"`
}

// NewClaims builds minimally-correct registered claims for a subject.
func NewClaims(subject string, ttl time.Duration, issuer string, audience []string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// Expired reports whether the exp claim is in the past. This is an advisory
// check on decoded claims; signature verification is Verify's job.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(c.ExpiresAt.Time)
}
