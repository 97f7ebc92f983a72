package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy.
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (recommended for refresh
	// tokens and API keys).
	TokenSize256 = 32
	// TokenSize512 provides 512 bits of entropy.
	TokenSize512 = 64
)

// Token creates a cryptographically secure random token of the given byte
// length, hex encoded. An error here means the system RNG is exhausted or
// broken, which callers should treat as fatal.
func Token(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: failed to read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// ID creates a cryptographically secure random identifier of the given byte
// length, base64url encoded (URL-safe, no padding).
func ID(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: id size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: failed to read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NumericCode returns a zero-padded numeric string of the given digit count
// drawn uniformly from [0, 10^digits). Used for one-time and backup codes.
func NumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("cryptox: digits must be in [1,18], got %d", digits)
	}

	bound := big.NewInt(1)
	for range digits {
		bound.Mul(bound, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", fmt.Errorf("cryptox: failed to draw random number: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}

// MustToken is like Token but panics on error. Use only during initialization
// where RNG failure is unrecoverable anyway.
func MustToken(size int) string {
	token, err := Token(size)
	if err != nil {
		panic(err)
	}
	return token
}
