// Package ratelimit implements fixed-window request counters keyed by
// arbitrary strings (client address, subscriber, global pool).
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/quillpad/quillpad/internal/metrics"
)

// ErrInvalidLimit is returned for non-positive limits or windows.
var ErrInvalidLimit = errors.New("ratelimit: limit and window must be positive")

// Result is the outcome of a single fixed-window check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// ResetInSeconds rounds ResetIn up to whole seconds.
func (r Result) ResetInSeconds() int {
	return int(math.Ceil(r.ResetIn.Seconds()))
}

// Store counts hits for a key within a fixed window. Implementations must
// make the compare and the increment a single atomic step per key.
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Scope is one named limit applied to a request, e.g. per-caller or global.
type Scope struct {
	Name   string
	Key    string
	Limit  int
	Window time.Duration
}

// Limiter applies fixed-window limits through a Store.
type Limiter struct {
	store Store
}

// New creates a Limiter backed by store.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Check counts one hit for key and reports whether it is within limit.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{}, ErrInvalidLimit
	}
	res, err := l.store.Hit(ctx, key, limit, window)
	if err != nil {
		return Result{}, fmt.Errorf("checking rate limit for %s: %w", key, err)
	}
	return res, nil
}

// CheckAll checks scopes in order and stops at the first denial, returning
// the denying scope's result and name. When every scope passes it returns the
// result with the fewest remaining hits.
func (l *Limiter) CheckAll(ctx context.Context, scopes ...Scope) (Result, string, error) {
	var (
		tightest Result
		name     string
	)
	for i, s := range scopes {
		res, err := l.Check(ctx, s.Key, s.Limit, s.Window)
		if err != nil {
			return Result{}, s.Name, err
		}
		if !res.Allowed {
			metrics.RateLimitDecisionsTotal.WithLabelValues(s.Name, "denied").Inc()
			return res, s.Name, nil
		}
		metrics.RateLimitDecisionsTotal.WithLabelValues(s.Name, "allowed").Inc()
		if i == 0 || res.Remaining < tightest.Remaining {
			tightest, name = res, s.Name
		}
	}
	return tightest, name, nil
}
