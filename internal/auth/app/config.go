package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	httpapi "github.com/gatehouse-dev/gatehouse/internal/auth/http"
	"github.com/gatehouse-dev/gatehouse/pkg/ratelimit"
)

type Config struct {
	Issuer   string   // Required: issuer claim for tokens
	Audience []string // Optional: audience claims for tokens (default: issuer)

	AccessSecret       string // Required: HMAC secret for access tokens
	RefreshSecret      string // Required: HMAC secret for refresh tokens
	VerificationSecret string // Required: HMAC secret for verification tokens

	AccessTTL       time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL      time.Duration // Optional: refresh token lifetime (default: 7 days)
	VerificationTTL time.Duration // Optional: verification token lifetime (default: 1h)
	SessionTTL      time.Duration // Optional: session lifetime (default: 30 days)

	StorageMode  string // Optional: store driver (memory, sqlite) (default: sqlite)
	DatabaseFile string // Optional: path to SQLite database file (default: ./gatehouse.db)

	RateLimitBackend string // Optional: limiter entry store (memory, redis) (default: memory)
	RedisAddr        string // Optional: redis address (required when backend is redis)
	RedisPassword    string // Optional: redis password
	RedisDB          int    // Optional: redis database index

	RateLimits    map[string]ratelimit.Config // Per-category admission rules
	SweepInterval time.Duration               // Optional: limiter sweep cadence (default: 5m)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer: getEnvOrDefault("AUTH_ISSUER", "gatehouse"),

		AccessSecret:       os.Getenv("AUTH_ACCESS_SECRET"),
		RefreshSecret:      os.Getenv("AUTH_REFRESH_SECRET"),
		VerificationSecret: os.Getenv("AUTH_VERIFICATION_SECRET"),

		AccessTTL:       getEnvDurationOrDefault("AUTH_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:      getEnvDurationOrDefault("AUTH_REFRESH_TTL", 7*24*time.Hour),
		VerificationTTL: getEnvDurationOrDefault("AUTH_VERIFICATION_TTL", time.Hour),
		SessionTTL:      getEnvDurationOrDefault("AUTH_SESSION_TTL", 30*24*time.Hour),

		StorageMode:  getEnvOrDefault("AUTH_STORAGE_MODE", "sqlite"),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "gatehouse.db"),

		RateLimitBackend: getEnvOrDefault("RATELIMIT_BACKEND", "memory"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvIntOrDefault("REDIS_DB", 0),

		SweepInterval: getEnvDurationOrDefault("RATELIMIT_SWEEP_INTERVAL", 5*time.Minute),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if aud := os.Getenv("AUTH_AUDIENCE"); aud != "" {
		for _, a := range strings.Split(aud, ",") {
			if a = strings.TrimSpace(a); a != "" {
				cfg.Audience = append(cfg.Audience, a)
			}
		}
	}

	cfg.RateLimits = loadRateLimits()

	return cfg
}

// defaultRateLimits is the admission table applied before env overrides.
// Credential endpoints are tight and escalate on abuse; the role-based
// buckets for routine authenticated traffic are deliberately roomy.
func defaultRateLimits() map[string]ratelimit.Config {
	return map[string]ratelimit.Config{
		httpapi.CategorySignIn: {
			Window: 15 * time.Minute, Max: 5,
			Strategy: ratelimit.Progressive, SkipSuccessful: true,
		},
		httpapi.CategorySignUp: {
			Window: time.Hour, Max: 5,
			Strategy: ratelimit.FixedWindow,
		},
		httpapi.CategoryTokenRefresh: {
			Window: time.Minute, Max: 10,
			Strategy: ratelimit.SlidingWindow,
		},
		httpapi.CategoryPasswordResetRequest: {
			Window: time.Hour, Max: 3,
			Strategy: ratelimit.FixedWindow,
		},
		httpapi.CategoryPasswordReset: {
			Window: 15 * time.Minute, Max: 5,
			Strategy: ratelimit.Progressive,
		},
		httpapi.CategoryEmailVerify: {
			Window: 15 * time.Minute, Max: 10,
			Strategy: ratelimit.FixedWindow,
		},
		httpapi.CategoryResendVerification: {
			Window: time.Hour, Max: 3,
			Strategy: ratelimit.FixedWindow,
		},
		httpapi.CategoryChangePassword: {
			Window: 15 * time.Minute, Max: 5,
			Strategy: ratelimit.FixedWindow, SkipSuccessful: true,
		},
		httpapi.CategoryMFASetup: {
			Window: 15 * time.Minute, Max: 5,
			Strategy: ratelimit.FixedWindow,
		},
		httpapi.CategoryMFAVerify: {
			Window: 15 * time.Minute, Max: 10,
			Strategy: ratelimit.Progressive, SkipSuccessful: true,
		},
		httpapi.CategoryMFADisable: {
			Window: 15 * time.Minute, Max: 5,
			Strategy: ratelimit.FixedWindow,
		},
		httpapi.CategoryGeneral: {
			Window: time.Minute, Max: 60,
			Strategy: ratelimit.SlidingWindow,
		},
		"user": {
			Window: time.Minute, Max: 120,
			Strategy: ratelimit.TokenBucket,
		},
		"admin": {
			Window: time.Minute, Max: 300,
			Strategy: ratelimit.TokenBucket,
		},
	}
}

// loadRateLimits applies RATELIMIT_<CATEGORY>_{MAX,WINDOW,STRATEGY,SKIP_SUCCESSFUL}
// overrides on top of the defaults, e.g. RATELIMIT_SIGN_IN_MAX=10.
func loadRateLimits() map[string]ratelimit.Config {
	limits := defaultRateLimits()

	for category, cfg := range limits {
		prefix := "RATELIMIT_" + strings.ToUpper(category) + "_"

		cfg.Max = getEnvIntOrDefault(prefix+"MAX", cfg.Max)
		cfg.Window = getEnvDurationOrDefault(prefix+"WINDOW", cfg.Window)

		if v := os.Getenv(prefix + "STRATEGY"); v != "" {
			if st, err := ratelimit.ParseStrategy(v); err == nil {
				cfg.Strategy = st
			}
			// Unknown strategy names keep the default
		}
		if v := os.Getenv(prefix + "SKIP_SUCCESSFUL"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				cfg.SkipSuccessful = b
			}
		}

		limits[category] = cfg
	}

	return limits
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
