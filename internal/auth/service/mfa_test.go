package service

import (
	"encoding/base32"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func generateCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()

	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func TestGenerateSecretFormat(t *testing.T) {
	s := NewMFAService(testIssuer)

	secret, err := s.GenerateSecret()
	require.NoError(t, err)
	require.NotContains(t, secret, "=", "secret should be unpadded")

	decoded, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	require.NoError(t, err)
	require.Len(t, decoded, secretBytes)

	other, err := s.GenerateSecret()
	require.NoError(t, err)
	require.NotEqual(t, secret, other)
}

func TestProvisioningURL(t *testing.T) {
	s := NewMFAService(testIssuer)

	secret, err := s.GenerateSecret()
	require.NoError(t, err)

	raw, err := s.ProvisioningURL("alice@example.com", secret)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(raw, "otpauth://totp/"))

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	require.Contains(t, parsed.Path, "alice@example.com")

	q := parsed.Query()
	require.Equal(t, testIssuer, q.Get("issuer"))
	require.Equal(t, "30", q.Get("period"))
	require.Equal(t, "SHA1", q.Get("algorithm"))
	require.Equal(t, "6", q.Get("digits"))

	// The URL must carry the stored secret verbatim. A re-encoded secret
	// would provision authenticators whose codes the server rejects.
	require.Equal(t, secret, q.Get("secret"))

	// A code computed from the URL's secret verifies against the stored
	// one, i.e. a scanned QR produces working codes.
	code := generateCode(t, q.Get("secret"), time.Now())
	require.NoError(t, s.VerifyCode("user-1", secret, code))
}

func TestProvisioningURLRequiresInputs(t *testing.T) {
	s := NewMFAService(testIssuer)

	_, err := s.ProvisioningURL("", "SECRET")
	require.Error(t, err)
	_, err = s.ProvisioningURL("alice@example.com", "")
	require.Error(t, err)
}

func TestVerifyCode(t *testing.T) {
	s := NewMFAService(testIssuer)
	now := time.Date(2025, 6, 1, 12, 0, 15, 0, time.UTC)
	s.now = func() time.Time { return now }

	secret, err := s.GenerateSecret()
	require.NoError(t, err)

	code := generateCode(t, secret, now)
	require.NoError(t, s.VerifyCode("user-1", secret, code))
}

func TestVerifyCodeRejectsReplay(t *testing.T) {
	s := NewMFAService(testIssuer)
	now := time.Date(2025, 6, 1, 12, 0, 15, 0, time.UTC)
	s.now = func() time.Time { return now }

	secret, err := s.GenerateSecret()
	require.NoError(t, err)

	code := generateCode(t, secret, now)
	require.NoError(t, s.VerifyCode("user-1", secret, code))

	// The same code within the same step must be refused.
	require.ErrorIs(t, s.VerifyCode("user-1", secret, code), ErrInvalidCode)

	// Other users are tracked independently.
	require.NoError(t, s.VerifyCode("user-2", secret, code))

	// The next step yields a fresh code that verifies again.
	now = now.Add(totpPeriod * time.Second)
	next := generateCode(t, secret, now)
	require.NoError(t, s.VerifyCode("user-1", secret, next))
}

func TestVerifyCodeToleratesOneStepOfDrift(t *testing.T) {
	s := NewMFAService(testIssuer)
	now := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	secret, err := s.GenerateSecret()
	require.NoError(t, err)

	// A code from the previous step is still inside the skew window.
	stale := generateCode(t, secret, now.Add(-totpPeriod*time.Second))
	require.NoError(t, s.VerifyCode("user-1", secret, stale))

	// Two steps back is outside it.
	tooOld := generateCode(t, secret, now.Add(-3*totpPeriod*time.Second))
	require.ErrorIs(t, s.VerifyCode("user-2", secret, tooOld), ErrInvalidCode)
}

func TestVerifyCodeRejectsWrongCode(t *testing.T) {
	s := NewMFAService(testIssuer)

	secret, err := s.GenerateSecret()
	require.NoError(t, err)

	require.ErrorIs(t, s.VerifyCode("user-1", secret, "000000"), ErrInvalidCode)
	require.ErrorIs(t, s.VerifyCode("user-1", secret, "not-a-code"), ErrInvalidCode)
	require.ErrorIs(t, s.VerifyCode("user-1", secret, ""), ErrInvalidCode)
}

func TestGenerateBackupCodes(t *testing.T) {
	s := NewMFAService(testIssuer)

	codes, err := s.GenerateBackupCodes(DefaultBackupCodeCount)
	require.NoError(t, err)
	require.Len(t, codes, DefaultBackupCodeCount)

	seen := make(map[string]struct{})
	for _, code := range codes {
		require.Regexp(t, `^\d{4}-\d{4}$`, code)
		_, dup := seen[code]
		require.False(t, dup, "backup codes must be distinct")
		seen[code] = struct{}{}
	}
}

func TestGenerateBackupCodesDefaultsCount(t *testing.T) {
	s := NewMFAService(testIssuer)

	codes, err := s.GenerateBackupCodes(0)
	require.NoError(t, err)
	require.Len(t, codes, DefaultBackupCodeCount)
}
