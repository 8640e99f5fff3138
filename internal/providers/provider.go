// Package providers dispatches generation requests to external text
// generation backends, falling back across them on capacity errors.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider is one generation backend.
type Provider interface {
	Name() string
	// Configured reports whether the backend has the credentials it needs.
	Configured() bool
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ProviderError is a non-2xx answer from a backend.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
}

var quotaVocabulary = []string{"rate limit", "quota", "too many requests"}

// IsQuotaError reports whether err signals temporary capacity exhaustion of
// one backend rather than a failure likely to repeat elsewhere.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Status == http.StatusTooManyRequests {
			return true
		}
		msg = pe.Message
	}
	msg = strings.ToLower(msg)
	for _, word := range quotaVocabulary {
		if strings.Contains(msg, word) {
			return true
		}
	}
	return false
}

// CleanOutput strips a fenced code block wrapping the whole output.
func CleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
