package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	maxResponseBytes   = 4 << 20
)

// Options configures an HTTP backend.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	// RPS paces outgoing calls; zero disables pacing.
	RPS        float64
	HTTPClient *http.Client
}

type httpBackend struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPBackend(name string, opts Options) httpBackend {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	b := httpBackend{
		name:    name,
		apiKey:  opts.APIKey,
		model:   opts.Model,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
	}
	if opts.RPS > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(opts.RPS), max(1, int(opts.RPS)))
	}
	return b
}

func (b *httpBackend) Name() string { return b.name }

func (b *httpBackend) Configured() bool { return b.apiKey != "" }

// postJSON sends in and decodes a 2xx answer into out. Other statuses come
// back as *ProviderError.
func (b *httpBackend) postJSON(ctx context.Context, url string, header http.Header, in, out any) error {
	if b.limiter != nil {
		// A pacer that cannot admit the call before the deadline is local
		// capacity exhaustion, reported the way the backend reports a 429.
		if err := b.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%s: waiting for pacing: %w", b.name, err)
			}
			return &ProviderError{Provider: b.name, Status: http.StatusTooManyRequests, Message: "local pacing: " + err.Error()}
		}
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshaling request: %w", b.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", b.name, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: sending request: %w", b.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", b.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{Provider: b.name, Status: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", b.name, err)
	}
	return nil
}

// errorMessage extracts {"error":{"message":...}}, the envelope both
// supported APIs use.
func errorMessage(data []byte, fallback string) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return fallback
}
