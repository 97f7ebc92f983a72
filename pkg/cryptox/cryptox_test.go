package cryptox

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	tok, err := Token(TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, TokenSize256*2) // hex doubles the byte count

	_, err = hex.DecodeString(tok)
	require.NoError(t, err, "token should be valid hex")

	other, err := Token(TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, tok, other, "two tokens should never collide")
}

func TestTokenRejectsNonPositiveSize(t *testing.T) {
	_, err := Token(0)
	require.Error(t, err)

	_, err = Token(-1)
	require.Error(t, err)
}

func TestNumericCode(t *testing.T) {
	code, err := NumericCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		require.True(t, r >= '0' && r <= '9', "code should be digits only, got %q", code)
	}
}

func TestSHA256HexDeterministic(t *testing.T) {
	a := SHA256Hex("refresh-token-value")
	b := SHA256Hex("refresh-token-value")
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	require.NotEqual(t, a, SHA256Hex("refresh-token-value2"))
}

func TestHMACVerify(t *testing.T) {
	sig := HMAC("payload", "secret")
	require.True(t, VerifyHMAC("payload", sig, "secret"))
	require.False(t, VerifyHMAC("payload", sig, "other-secret"))
	require.False(t, VerifyHMAC("tampered", sig, "secret"))
}

func TestConstantTimeEqual(t *testing.T) {
	require.True(t, ConstantTimeEqual("abc", "abc"))
	require.False(t, ConstantTimeEqual("abc", "abd"))
	require.False(t, ConstantTimeEqual("abc", "abcd"))
	require.True(t, ConstantTimeEqual("", ""))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := DeriveKey([]byte("master key material"))
	require.Len(t, key, 32)

	plaintext := []byte("JBSWY3DPEHPK3PXP") // a TOTP secret is the usual payload

	ciphertext, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	decrypted, err := Decrypt(ciphertext, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	key := DeriveKey([]byte("master key material"))

	ciphertext, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xff
	_, err = Decrypt(ciphertext, key)
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	key := DeriveKey([]byte("master key material"))
	wrong := DeriveKey([]byte("other key material"))

	ciphertext, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, wrong)
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptRejectsShortInput(t *testing.T) {
	key := DeriveKey([]byte("master key material"))

	_, err := Decrypt([]byte{0x01, 0x02}, key)
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"unicode password", "пароль密码"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"),
				"hash should be in PHC format")

			require.NoError(t, VerifyPassword(tt.password, hash))
			require.ErrorIs(t, VerifyPassword(tt.password+"x", hash), ErrPasswordMismatch)
		})
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	h1, err := HashPassword("same password")
	require.NoError(t, err)
	h2, err := HashPassword("same password")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2, "each hash should carry a fresh salt")
}

func TestVerifyPasswordRejectsGarbageHash(t *testing.T) {
	err := VerifyPassword("password", "not-a-phc-hash")
	require.Error(t, err)
}
