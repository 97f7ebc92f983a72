package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")

	ErrWrongTokenType = errors.New("jwtx: wrong token type")
)

// VerifyOptions captures common expectations used when verifying.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Audience values the token must contain (claims.aud). Empty means
	// "don't care".
	Audience []string

	// Leeway allows small clock skew when validating exp/nbf.
	// Because time sync is never perfect.
	Leeway time.Duration
}

// HS256 signs and verifies tokens with a single symmetric secret. Each token
// domain (access, refresh, verification) gets its own HS256 instance with
// independent secret material, so compromise of one domain cannot mint
// tokens for another.
type HS256 struct {
	secret []byte
	opts   VerifyOptions
}

// NewHS256 builds a symmetric signer/verifier. The secret must be non-empty;
// a missing secret is a deployment misconfiguration, not a runtime state.
func NewHS256(secret string, opts VerifyOptions) (*HS256, error) {
	if secret == "" {
		return nil, errors.New("jwtx: signing secret must not be empty")
	}
	return &HS256{secret: []byte(secret), opts: opts}, nil
}

// Sign serializes and signs the claims. Failure here means the signing
// machinery itself broke, never an input problem.
func (h *HS256) Sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)

	signed, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token, checks the signature and registered time claims,
// then enforces issuer/audience expectations. The distinct sentinel errors
// matter: ErrExpired is routinely recoverable via refresh, the rest are not.
func (h *HS256) Verify(raw string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrAlgMismatch
			}
			return h.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(h.opts.Leeway),
	)
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if err := claims.ValidateIssuer(h.opts.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(h.opts.Audience); err != nil {
		return Claims{}, err
	}

	return claims, nil
}

// DecodeUnverified extracts claims without checking the signature. Only for
// advisory checks such as client-side expiry hints, never for authorization
// decisions.
func DecodeUnverified(raw string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return Claims{}, ErrMalformed
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	default:
		return ErrMalformed
	}
}
