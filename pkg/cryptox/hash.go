package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SHA256Hex returns the hex-encoded SHA-256 digest of value. This is a
// one-way fingerprint, used to store token hashes so the raw token never
// touches the database.
func SHA256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// HMAC computes the hex-encoded HMAC-SHA256 of data under secret.
func HMAC(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC reports whether signature is the HMAC-SHA256 of data under
// secret. The comparison is constant time.
func VerifyHMAC(data, signature, secret string) bool {
	expected := HMAC(data, secret)
	return ConstantTimeEqual(expected, signature)
}

// ConstantTimeEqual compares two strings in constant time. A length mismatch
// returns false immediately, which leaks only the length, not the content.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
