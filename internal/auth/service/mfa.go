package service

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gatehouse-dev/gatehouse/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// totpPeriod and totpSkew define the verification policy: 30 second
	// steps with one step of drift tolerance either side, per RFC 6238.
	totpPeriod = 30
	totpSkew   = 1

	secretBytes = 20 // 160 bits of entropy

	// DefaultBackupCodeCount is how many one-time backup codes an
	// enrollment hands out.
	DefaultBackupCodeCount = 10
)

// MFAService generates TOTP secrets and backup codes and verifies submitted
// codes. Consumption bookkeeping for backup codes lives in the credential
// store; this service only produces and checks values.
type MFAService struct {
	Issuer string // issuer name shown in authenticator apps

	// lastStep remembers the most recent accepted TOTP step per user so a
	// captured code cannot be replayed within its validity window.
	mu       sync.Mutex
	lastStep map[string]int64

	now func() time.Time
}

func NewMFAService(issuer string) *MFAService {
	return &MFAService{
		Issuer:   issuer,
		lastStep: make(map[string]int64),
		now:      time.Now,
	}
}

// GenerateSecret returns a fresh TOTP secret: 160 bits of entropy, base32
// encoded with the standard RFC 4648 alphabet, no padding.
func (s *MFAService) GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate mfa secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// ProvisioningURL builds the otpauth:// URL for QR provisioning of an
// already-generated secret. The stored base32 secret goes into the URL
// verbatim; handing it to totp.Generate would base32-encode it a second
// time and provision authenticators with a secret VerifyCode never checks.
func (s *MFAService) ProvisioningURL(account, secret string) (string, error) {
	if account == "" || secret == "" {
		return "", fmt.Errorf("failed to build provisioning url: account and secret are required")
	}

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", s.Issuer)
	v.Set("period", strconv.Itoa(totpPeriod))
	v.Set("algorithm", otp.AlgorithmSHA1.String())
	v.Set("digits", otp.DigitsSix.String())

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + s.Issuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return u.String(), nil
}

// VerifyCode checks a submitted TOTP code against the stored secret. The
// code must fall within the current step plus or minus one step of drift,
// and each step is accepted at most once per user.
func (s *MFAService) VerifyCode(userID, secret, code string) error {
	now := s.now()

	ok, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		return ErrInvalidCode
	}

	step := now.Unix() / totpPeriod

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, seen := s.lastStep[userID]; seen && step <= last {
		return ErrInvalidCode
	}
	s.lastStep[userID] = step
	return nil
}

// GenerateBackupCodes returns count distinct one-time codes, each two
// independently drawn 4-digit groups joined by a dash, e.g. "1234-5678".
func (s *MFAService) GenerateBackupCodes(count int) ([]string, error) {
	if count <= 0 {
		count = DefaultBackupCodeCount
	}

	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)

	for len(codes) < count {
		first, err := cryptox.NumericCode(4)
		if err != nil {
			return nil, err
		}
		second, err := cryptox.NumericCode(4)
		if err != nil {
			return nil, err
		}

		code := first + "-" + second
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}
