package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatehouse-dev/gatehouse/pkg/httpx"
	"github.com/gatehouse-dev/gatehouse/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, "192.168.1.1", httpx.ClientIP(req))
	})

	t.Run("prefers first X-Forwarded-For entry", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")

		require.Equal(t, "203.0.113.1", httpx.ClientIP(req))
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")

		require.Equal(t, "203.0.113.2", httpx.ClientIP(req))
	})

	t.Run("falls back to raw RemoteAddr without port", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1"

		require.Equal(t, "192.168.1.1", httpx.ClientIP(req))
	})
}

func newTestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), map[string]ratelimit.Config{
		"test": {Window: time.Minute, Max: 2, Strategy: ratelimit.FixedWindow},
	})

	handler := httpx.Chain(newTestHandler(),
		httpx.RateLimit(limiter, httpx.ByIP("test")),
	)

	doRequest := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("admitted requests carry rate limit headers", func(t *testing.T) {
		rec := doRequest("203.0.113.1")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
		require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("over-limit requests get 429 with Retry-After", func(t *testing.T) {
		doRequest("203.0.113.2")
		doRequest("203.0.113.2")
		rec := doRequest("203.0.113.2")

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Contains(t, rec.Body.String(), "Too Many Requests")
		require.Contains(t, rec.Body.String(), "retryAfter")
	})

	t.Run("other clients are unaffected", func(t *testing.T) {
		rec := doRequest("203.0.113.3")
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimitMiddlewareSkipSuccessful(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), map[string]ratelimit.Config{
		"test": {Window: time.Minute, Max: 2, Strategy: ratelimit.FixedWindow, SkipSuccessful: true},
	})

	status := http.StatusOK
	handler := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}),
		httpx.RateLimit(limiter, httpx.ByIP("test")),
	)

	doRequest := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// 2xx responses hand the attempt back, so success never throttles.
	for range 10 {
		require.Equal(t, http.StatusOK, doRequest())
	}

	// Failures consume the allowance.
	status = http.StatusUnauthorized
	require.Equal(t, http.StatusUnauthorized, doRequest())
	require.Equal(t, http.StatusUnauthorized, doRequest())
	require.Equal(t, http.StatusTooManyRequests, doRequest())
}

func TestChainOrder(t *testing.T) {
	var calls []string

	tag := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls = append(calls, "handler")
		}),
		tag("outer"),
		tag("inner"),
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteJSON(rec, http.StatusTeapot, map[string]string{"k": "v"})

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"k":"v"}`, rec.Body.String())
}
