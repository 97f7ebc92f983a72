package service

import "errors"

// Sentinel errors raised by the auth core. The HTTP boundary maps these to
// status codes; nothing in this package knows about transports.
var (
	// ErrUnauthorized covers missing or unusable credentials: no bearer
	// token, unknown session, revoked refresh token. Token-shape problems
	// surface as the jwtx sentinels instead so expiry stays
	// distinguishable from invalidity.
	ErrUnauthorized = errors.New("service: unauthorized")

	// ErrForbidden means the caller is authenticated but not allowed.
	ErrForbidden = errors.New("service: forbidden")

	ErrInvalidCredentials = errors.New("service: invalid credentials")
	ErrSessionInvalid     = errors.New("service: session expired or inactive")
	ErrAccountDisabled    = errors.New("service: account disabled")
	ErrEmailNotVerified   = errors.New("service: email not verified")

	ErrPurposeMismatch = errors.New("service: verification token purpose mismatch")

	ErrMFARequired       = errors.New("service: mfa code required")
	ErrMFANotEnabled     = errors.New("service: mfa not enabled")
	ErrMFAAlreadyEnabled = errors.New("service: mfa already enabled")
	ErrInvalidCode       = errors.New("service: invalid one-time code")
)
