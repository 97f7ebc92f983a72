package domain

import "time"

// TokenPair is what a successful sign-in or refresh returns: the short-lived
// access token (JWT) and the longer-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // seconds until access expiry
}

// RefreshToken models the stored refresh token record. Records are revoked,
// never physically deleted here; retention is the store's concern.
type RefreshToken struct {
	ID            string
	UserID        string
	SessionID     string
	TokenHash     string // deterministic fingerprint (hex SHA-256)
	ExpiresAt     time.Time
	Revoked       bool
	RevokedReason string
	RevokedAt     *time.Time
	CreatedAt     time.Time
}

// VerificationPurpose names the single use a verification token is minted
// for. A token for one purpose never verifies for another.
const (
	PurposeEmailVerify   = "email_verify"
	PurposePasswordReset = "password_reset"
)
