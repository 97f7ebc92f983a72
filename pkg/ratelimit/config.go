package ratelimit

import (
	"fmt"
	"math"
	"time"
)

// Strategy selects the admission algorithm for an endpoint category.
type Strategy int

const (
	// FixedWindow keeps one counter per key that resets on a fixed
	// boundary. Cheapest option; a burst straddling the boundary can admit
	// close to 2x Max across the seam, which is an accepted property of the
	// algorithm.
	FixedWindow Strategy = iota

	// SlidingWindow keeps the admission timestamps per key and bounds the
	// count over any trailing window, not just aligned ones.
	SlidingWindow

	// Progressive is a fixed window that tightens after violations: each
	// rejection shrinks the allowance and stretches the window for that
	// key, producing escalating backoff.
	Progressive

	// TokenBucket smooths admissions to a steady refill rate with bursts up
	// to Max, backed by golang.org/x/time/rate.
	TokenBucket
)

func (s Strategy) String() string {
	switch s {
	case FixedWindow:
		return "fixed_window"
	case SlidingWindow:
		return "sliding_window"
	case Progressive:
		return "progressive"
	case TokenBucket:
		return "token_bucket"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration string onto a Strategy. Unknown
// values report an error rather than silently picking a default.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "fixed_window", "fixed":
		return FixedWindow, nil
	case "sliding_window", "sliding":
		return SlidingWindow, nil
	case "progressive":
		return Progressive, nil
	case "token_bucket", "bucket":
		return TokenBucket, nil
	}
	return FixedWindow, fmt.Errorf("ratelimit: unknown strategy %q", s)
}

// Config defines the rate limiting parameters for one endpoint category.
// Configs are immutable once the limiter is constructed.
type Config struct {
	// Window is the time window requests are counted over.
	Window time.Duration

	// Max is the number of requests admitted per window.
	Max int

	// Strategy picks the admission algorithm.
	Strategy Strategy

	// SkipSuccessful uncounts attempts whose guarded operation later
	// succeeds. The caller must report the outcome via ReportOutcome; the
	// limiter never guesses.
	SkipSuccessful bool
}

// Result describes an admission decision. It is returned for admitted and
// rejected requests alike so callers can always emit X-RateLimit-* headers.
type Result struct {
	Admitted  bool
	Limit     int
	Remaining int
	ResetAt   time.Time

	// RetryAfter is the whole number of seconds until the key's window
	// resets. Only meaningful on rejection.
	RetryAfter int
}

// LimitError signals a rejected request. It is a distinct type, never a
// generic error, so the boundary can map it to 429 with the right headers.
type LimitError struct {
	Result Result
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("ratelimit: limit of %d exceeded, retry after %ds", e.Result.Limit, e.Result.RetryAfter)
}

// retryAfterSeconds rounds the time until reset up to whole seconds, with a
// floor of 1 so clients never get told to retry immediately.
func retryAfterSeconds(resetAt, now time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	return max(secs, 1)
}

// Subject key helpers. The full store key is "<subject>:<category>".

// UserKey returns the rate-limit subject for an authenticated user.
func UserKey(userID string) string { return "user:" + userID }

// IPKey returns the rate-limit subject for an unauthenticated client.
func IPKey(ip string) string { return "ip:" + ip }
