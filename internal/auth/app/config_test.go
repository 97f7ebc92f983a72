package app

import (
	"testing"
	"time"

	"github.com/gatehouse-dev/gatehouse/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, "gatehouse", cfg.Issuer)
	require.Empty(t, cfg.Audience)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, time.Hour, cfg.VerificationTTL)
	require.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	require.Equal(t, "sqlite", cfg.StorageMode)
	require.Equal(t, "memory", cfg.RateLimitBackend)
	require.Equal(t, 5*time.Minute, cfg.SweepInterval)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("AUTH_ISSUER", "gatehouse.example.com")
	t.Setenv("AUTH_AUDIENCE", "api.example.com, app.example.com,")
	t.Setenv("AUTH_ACCESS_TTL", "5m")
	t.Setenv("AUTH_SESSION_TTL", "60")
	t.Setenv("AUTH_STORAGE_MODE", "memory")
	t.Setenv("PORT", "9090")

	cfg := LoadConfig()

	require.Equal(t, "gatehouse.example.com", cfg.Issuer)
	require.Equal(t, []string{"api.example.com", "app.example.com"}, cfg.Audience)
	require.Equal(t, 5*time.Minute, cfg.AccessTTL)
	require.Equal(t, 60*time.Minute, cfg.SessionTTL, "bare integers read as minutes")
	require.Equal(t, "memory", cfg.StorageMode)
	require.Equal(t, 9090, cfg.Port)
}

func TestDefaultRateLimits(t *testing.T) {
	limits := defaultRateLimits()

	signIn, ok := limits["sign_in"]
	require.True(t, ok)
	require.Equal(t, 5, signIn.Max)
	require.Equal(t, 15*time.Minute, signIn.Window)
	require.Equal(t, ratelimit.Progressive, signIn.Strategy)
	require.True(t, signIn.SkipSuccessful)

	admin, ok := limits["admin"]
	require.True(t, ok)
	require.Equal(t, ratelimit.TokenBucket, admin.Strategy)
	require.Greater(t, admin.Max, limits["user"].Max, "admins get more headroom")

	// Every registered category resolves; routes never rely on the
	// limiter fallback.
	for _, category := range []string{
		"sign_in", "sign_up", "token_refresh", "password_reset_request", "password_reset",
		"email_verify", "resend_verification", "change_password",
		"mfa_setup", "mfa_verify", "mfa_disable", "general", "user", "admin",
	} {
		cfg, ok := limits[category]
		require.True(t, ok, "missing category %q", category)
		require.Positive(t, cfg.Max, "category %q", category)
		require.Positive(t, cfg.Window, "category %q", category)
	}
}

func TestRateLimitOverrides(t *testing.T) {
	t.Setenv("RATELIMIT_SIGN_IN_MAX", "20")
	t.Setenv("RATELIMIT_SIGN_IN_WINDOW", "1h")
	t.Setenv("RATELIMIT_SIGN_IN_STRATEGY", "fixed_window")
	t.Setenv("RATELIMIT_SIGN_IN_SKIP_SUCCESSFUL", "false")
	t.Setenv("RATELIMIT_GENERAL_STRATEGY", "bogus")

	limits := loadRateLimits()

	signIn := limits["sign_in"]
	require.Equal(t, 20, signIn.Max)
	require.Equal(t, time.Hour, signIn.Window)
	require.Equal(t, ratelimit.FixedWindow, signIn.Strategy)
	require.False(t, signIn.SkipSuccessful)

	// Unknown strategy names keep the default.
	require.Equal(t, ratelimit.SlidingWindow, limits["general"].Strategy)
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]ratelimit.Strategy{
		"fixed_window":   ratelimit.FixedWindow,
		"fixed":          ratelimit.FixedWindow,
		"sliding_window": ratelimit.SlidingWindow,
		"sliding":        ratelimit.SlidingWindow,
		"progressive":    ratelimit.Progressive,
		"token_bucket":   ratelimit.TokenBucket,
		"bucket":         ratelimit.TokenBucket,
	}
	for in, want := range cases {
		got, err := ratelimit.ParseStrategy(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ratelimit.ParseStrategy("bogus")
	require.Error(t, err)
}
