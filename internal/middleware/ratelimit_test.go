package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpad/quillpad/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func setupRateLimiter(t *testing.T, callerLimit, globalLimit int) http.Handler {
	t.Helper()
	l := ratelimit.New(ratelimit.NewMemoryStore())
	rl := NewRateLimiter(l, RateLimitPolicy{Name: "ai", CallerLimit: callerLimit, GlobalLimit: globalLimit, Window: time.Minute})
	return rl.Middleware(okHandler())
}

func doFrom(handler http.Handler, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/ai/generate", nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	handler := setupRateLimiter(t, 5, 100)

	for i := 0; i < 5; i++ {
		rec := doFrom(handler, "192.168.1.1:12345")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestRateLimiter_BlocksOverCallerLimit(t *testing.T) {
	handler := setupRateLimiter(t, 3, 100)

	for i := 0; i < 3; i++ {
		rec := doFrom(handler, "10.0.0.1:12345")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := doFrom(handler, "10.0.0.1:12345")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.Equal(t, "caller", rec.Header().Get("X-RateLimit-Scope"))
	assert.Equal(t, float64(60), body["retry_after"])
}

func TestRateLimiter_DifferentIPsIndependent(t *testing.T) {
	handler := setupRateLimiter(t, 2, 100)

	for i := 0; i < 2; i++ {
		doFrom(handler, "1.1.1.1:1")
	}

	rec := doFrom(handler, "2.2.2.2:1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_GlobalScopeAppliesAcrossIPs(t *testing.T) {
	handler := setupRateLimiter(t, 2, 3)

	assert.Equal(t, http.StatusOK, doFrom(handler, "1.1.1.1:1").Code)
	assert.Equal(t, http.StatusOK, doFrom(handler, "2.2.2.2:1").Code)
	assert.Equal(t, http.StatusOK, doFrom(handler, "3.3.3.3:1").Code)

	rec := doFrom(handler, "4.4.4.4:1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "global", rec.Header().Get("X-RateLimit-Scope"))
}

func TestRateLimiter_RemainingHeader(t *testing.T) {
	handler := setupRateLimiter(t, 5, 100)

	rec := doFrom(handler, "5.5.5.5:1")
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimiter_IgnoresRotatingForwardedFor(t *testing.T) {
	handler := setupRateLimiter(t, 2, 100)

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest("POST", "/", nil)
		req.RemoteAddr = "198.51.100.4:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}

func TestRateLimiter_TrustedProxyUsesRealIP(t *testing.T) {
	handler := chimw.RealIP(setupRateLimiter(t, 1, 100))

	send := func(client string) int {
		req := httptest.NewRequest("POST", "/", nil)
		req.RemoteAddr = "10.0.0.9:1"
		req.Header.Set("X-Real-IP", client)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.7"))
	assert.Equal(t, http.StatusOK, send("203.0.113.8"), "distinct clients behind one proxy")
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7"))
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l := ratelimit.New(ratelimit.NewRedisStore(client))
	handler := NewRateLimiter(l, RateLimitPolicy{Name: "ai", CallerLimit: 1, GlobalLimit: 10, Window: time.Minute}).Middleware(okHandler())
	mr.Close() // kill Redis

	rec := doFrom(handler, "3.3.3.3:1")
	assert.Equal(t, http.StatusOK, rec.Code, "fail-open on store error")
}
