package httpx

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gatehouse-dev/gatehouse/pkg/ratelimit"
	"github.com/gatehouse-dev/gatehouse/pkg/slogx"
)

// ClientIP resolves the originating client address. The first entry of
// X-Forwarded-For wins because downstream proxies append to it; operators
// behind untrusted proxies must strip or rewrite the header upstream. Then
// X-Real-IP, then the raw connection address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// KeyFunc picks the rate-limit category and subject for a request. The
// subject is "user:<id>" for authenticated callers and "ip:<addr>"
// otherwise; which one applies depends on whether authentication has been
// resolved yet, so the chooser is injected.
type KeyFunc func(*http.Request) (category, subject string)

// ByIP keys requests purely by client IP under a fixed category. For
// unauthenticated/public endpoints where no user identity exists yet.
func ByIP(category string) KeyFunc {
	return func(r *http.Request) (string, string) {
		return category, ratelimit.IPKey(ClientIP(r))
	}
}

// RateLimit gates requests through the limiter before the handler runs.
// Every response carries X-RateLimit-* headers; rejections answer 429 with
// Retry-After and a JSON body. For categories configured with
// SkipSuccessful, the handler's outcome (any status below 400 counts as
// success) is reported back to the limiter after handling completes.
func RateLimit(limiter *ratelimit.Limiter, key KeyFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			category, subject := key(r)
			if subject == "" {
				// No key means no way to count; let it through but say so.
				log.Warn("rate limit: unable to derive key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Admit(category, subject)
			setRateLimitHeaders(w, result)

			if err != nil {
				var limitErr *ratelimit.LimitError
				if errors.As(err, &limitErr) {
					w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
					log.Warn("rate limit exceeded",
						"category", category,
						"subject", subject,
						"retry_after", result.RetryAfter,
					)
					WriteJSON(w, http.StatusTooManyRequests, ErrorBody{
						Error:      "Too Many Requests",
						Message:    "Rate limit exceeded. Please try again later.",
						RetryAfter: result.RetryAfter,
					})
					return
				}
				log.Error("rate limiter failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			limiter.ReportOutcome(category, subject, sw.status < http.StatusBadRequest)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.UnixMilli(), 10))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
