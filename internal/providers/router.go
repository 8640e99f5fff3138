package providers

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/quillpad/quillpad/internal/governance"
	"github.com/quillpad/quillpad/internal/metrics"
)

// Call outcomes recorded in metrics.
const (
	outcomeSuccess = "success"
	outcomeQuota   = "quota"
	outcomeError   = "error"
)

type Result struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

// Router holds the known backends by name.
type Router struct {
	providers map[string]Provider
	timeout   time.Duration
}

// NewRouter registers providers under their Name. timeout bounds each
// backend call; zero leaves only the caller's deadline.
func NewRouter(timeout time.Duration, providers ...Provider) *Router {
	r := &Router{providers: make(map[string]Provider, len(providers)), timeout: timeout}
	for _, p := range providers {
		if _, exists := r.providers[p.Name()]; exists {
			slog.Warn("providers: duplicate provider ignored", "provider", p.Name())
			continue
		}
		r.providers[p.Name()] = p
	}
	return r
}

// Configured returns the names of the usable providers, sorted.
func (r *Router) Configured() []string {
	var names []string
	for name, p := range r.providers {
		if p.Configured() {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Dispatch tries the configured providers in preferred order and returns the
// first success. A quota-class failure moves on to the next candidate; any
// other failure is returned at once.
func (r *Router) Dispatch(ctx context.Context, messages []Message, preferred []string) (*Result, error) {
	candidates := r.candidates(preferred)
	if len(candidates) == 0 {
		return nil, governance.ErrNoProviderConfigured
	}

	var lastErr error
	for i, p := range candidates {
		text, err := r.call(ctx, p, messages)
		if err == nil {
			return &Result{Text: CleanOutput(text), Provider: p.Name()}, nil
		}
		if ctx.Err() != nil {
			return nil, governance.Canceled(ctx.Err())
		}
		if !IsQuotaError(err) {
			return nil, governance.Wrap(governance.ErrProvider, err)
		}

		lastErr = err
		if i+1 < len(candidates) {
			metrics.ProviderFallbacksTotal.WithLabelValues(p.Name()).Inc()
			slog.Warn("providers: quota exhausted, falling back",
				"provider", p.Name(), "next", candidates[i+1].Name(), "error", err)
		} else {
			slog.Warn("providers: quota exhausted", "provider", p.Name(), "error", err)
		}
	}
	return nil, governance.Wrap(governance.ErrProvidersUnavailable, lastErr)
}

func (r *Router) candidates(preferred []string) []Provider {
	var out []Provider
	seen := make(map[string]bool, len(preferred))
	for _, name := range preferred {
		p, ok := r.providers[name]
		if !ok || seen[name] || !p.Configured() {
			continue
		}
		seen[name] = true
		out = append(out, p)
	}
	if len(out) > 0 {
		return out
	}
	for _, name := range r.Configured() {
		out = append(out, r.providers[name])
	}
	return out
}

func (r *Router) call(ctx context.Context, p Provider, messages []Message) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := p.Complete(ctx, messages)
	metrics.ProviderCallDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

	outcome := outcomeSuccess
	switch {
	case err == nil:
	case IsQuotaError(err):
		outcome = outcomeQuota
	default:
		outcome = outcomeError
	}
	metrics.ProviderCallsTotal.WithLabelValues(p.Name(), outcome).Inc()
	return text, err
}
