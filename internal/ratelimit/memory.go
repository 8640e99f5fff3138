package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quillpad/quillpad/internal/metrics"
)

type window struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
	dead    bool
}

// MemoryStore keeps fixed-window counters in process memory. Counters are
// lost on restart.
type MemoryStore struct {
	entries sync.Map // string -> *window
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hit implements Store. The table itself is never locked; only the entry for
// key is, and only for the compare-and-increment.
func (s *MemoryStore) Hit(_ context.Context, key string, limit int, win time.Duration) (Result, error) {
	for {
		v, ok := s.entries.Load(key)
		if !ok {
			v, _ = s.entries.LoadOrStore(key, &window{})
		}
		w := v.(*window)

		w.mu.Lock()
		if w.dead {
			// Swept between Load and Lock; retry against a fresh entry.
			w.mu.Unlock()
			continue
		}
		res := w.hit(s.now(), limit, win)
		w.mu.Unlock()
		return res, nil
	}
}

func (w *window) hit(now time.Time, limit int, win time.Duration) Result {
	if w.count == 0 || now.After(w.resetAt) {
		w.count = 1
		w.resetAt = now.Add(win)
		return Result{Allowed: true, Limit: limit, Remaining: limit - 1, ResetIn: win}
	}

	resetIn := w.resetAt.Sub(now)
	if w.count < limit {
		w.count++
		return Result{Allowed: true, Limit: limit, Remaining: limit - w.count, ResetIn: resetIn}
	}
	return Result{Allowed: false, Limit: limit, Remaining: 0, ResetIn: resetIn}
}

// Sweep removes entries whose window has expired and returns how many were
// removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	removed := 0
	live := 0
	s.entries.Range(func(k, v any) bool {
		w := v.(*window)
		w.mu.Lock()
		if now.After(w.resetAt) {
			w.dead = true
			s.entries.CompareAndDelete(k, v)
			removed++
		} else {
			live++
		}
		w.mu.Unlock()
		return true
	})
	metrics.RateLimitEntries.Set(float64(live))
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Start sweeps expired entries every interval. Blocks until ctx is cancelled.
func (s *MemoryStore) Start(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("rate limiter sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("ratelimit: swept expired windows", "removed", n)
			}
		}
	}
}
