package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/quillpad/quillpad/internal/governance"
	"github.com/quillpad/quillpad/internal/ratelimit"
)

// RateLimitPolicy is the pair of fixed windows guarding an endpoint group.
type RateLimitPolicy struct {
	Name        string
	CallerLimit int
	GlobalLimit int
	Window      time.Duration
}

// RateLimiter enforces a per-caller and a global fixed window per request.
type RateLimiter struct {
	limiter *ratelimit.Limiter
	policy  RateLimitPolicy
}

// NewRateLimiter creates the middleware for one endpoint group.
func NewRateLimiter(limiter *ratelimit.Limiter, policy RateLimitPolicy) *RateLimiter {
	return &RateLimiter{limiter: limiter, policy: policy}
}

// Middleware returns an HTTP middleware that enforces the rate limit.
// On store errors it fails open (allows the request through).
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		res, scope, err := rl.limiter.CheckAll(r.Context(),
			ratelimit.Scope{Name: "caller", Key: rl.policy.Name + ":ip:" + ip, Limit: rl.policy.CallerLimit, Window: rl.policy.Window},
			ratelimit.Scope{Name: "global", Key: rl.policy.Name + ":global", Limit: rl.policy.GlobalLimit, Window: rl.policy.Window},
		)
		if err != nil {
			slog.Warn("rate limiter: store error, failing open", "error", err, "ip", ip, "scope", scope)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.Itoa(res.ResetInSeconds()))

		if !res.Allowed {
			denied := governance.RateLimited(res.ResetIn)
			slog.Debug("rate limiter: request denied", "ip", ip, "scope", scope, "retry_after", denied.RetryAfterSeconds())

			w.Header().Set("X-RateLimit-Scope", scope)
			governance.WriteHTTP(w, denied)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP is the host part of RemoteAddr. Forwarding headers are honoured
// only through chimw.RealIP, which the router installs when the proxy in
// front of it is trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
