package governance

import (
	"context"
	"errors"
	"time"
)

// Kind groups error codes by how callers should react to them.
type Kind string

const (
	KindPolicyDenied      Kind = "POLICY_DENIED"
	KindNotFound          Kind = "NOT_FOUND"
	KindProviderTransient Kind = "PROVIDER_TRANSIENT"
	KindProviderFatal     Kind = "PROVIDER_FATAL"
	KindCanceled          Kind = "CANCELED"
)

// Code is the stable identifier callers match on.
type Code string

const (
	CodeRateLimited          Code = "RATE_LIMITED"
	CodeLimitReached         Code = "LIMIT_REACHED"
	CodeSubscriptionExpired  Code = "SUBSCRIPTION_EXPIRED"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeSubscriberNotFound   Code = "SUBSCRIBER_NOT_FOUND"
	CodeSubscriptionNotFound Code = "SUBSCRIPTION_NOT_FOUND"
	CodePaymentNotFound      Code = "PAYMENT_NOT_FOUND"
	CodeProvidersUnavailable Code = "PROVIDERS_UNAVAILABLE"
	CodeNoProviderConfigured Code = "NO_PROVIDER_CONFIGURED"
	CodeProviderError        Code = "PROVIDER_ERROR"
	CodeRequestCanceled      Code = "REQUEST_CANCELED"
	CodeRequestTimeout       Code = "REQUEST_TIMEOUT"
)

// Error is a classified failure of the gateway or the subscription lifecycle.
type Error struct {
	Kind       Kind
	Code       Code
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so wrapped copies compare equal to the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrRateLimited          = &Error{Kind: KindPolicyDenied, Code: CodeRateLimited, Message: "too many requests"}
	ErrLimitReached         = &Error{Kind: KindPolicyDenied, Code: CodeLimitReached, Message: "free generation limit reached"}
	ErrExportLimitReached   = &Error{Kind: KindPolicyDenied, Code: CodeLimitReached, Message: "free export limit reached"}
	ErrSubscriptionExpired  = &Error{Kind: KindPolicyDenied, Code: CodeSubscriptionExpired, Message: "subscription expired"}
	ErrUnauthorized         = &Error{Kind: KindPolicyDenied, Code: CodeUnauthorized, Message: "admin role required"}
	ErrInvalidTransition    = &Error{Kind: KindPolicyDenied, Code: CodeInvalidTransition, Message: "subscription cannot be activated from its current status"}
	ErrSubscriberNotFound   = &Error{Kind: KindNotFound, Code: CodeSubscriberNotFound, Message: "subscriber not found"}
	ErrSubscriptionNotFound = &Error{Kind: KindNotFound, Code: CodeSubscriptionNotFound, Message: "subscription not found"}
	ErrPaymentNotFound      = &Error{Kind: KindNotFound, Code: CodePaymentNotFound, Message: "payment not found for subscription"}
	ErrProvidersUnavailable = &Error{Kind: KindProviderTransient, Code: CodeProvidersUnavailable, Message: "all providers unavailable"}
	ErrNoProviderConfigured = &Error{Kind: KindProviderFatal, Code: CodeNoProviderConfigured, Message: "no provider configured"}
	ErrProvider             = &Error{Kind: KindProviderFatal, Code: CodeProviderError, Message: "provider failed"}
	ErrRequestCanceled      = &Error{Kind: KindCanceled, Code: CodeRequestCanceled, Message: "request canceled"}
	ErrRequestTimeout       = &Error{Kind: KindCanceled, Code: CodeRequestTimeout, Message: "request timed out"}
)

// RateLimited returns ErrRateLimited carrying a retry-after hint.
func RateLimited(retryAfter time.Duration) *Error {
	e := *ErrRateLimited
	e.RetryAfter = retryAfter
	return &e
}

// Canceled classifies a context error: an expired deadline becomes
// ErrRequestTimeout, anything else ErrRequestCanceled.
func Canceled(ctxErr error) *Error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return Wrap(ErrRequestTimeout, ctxErr)
	}
	return Wrap(ErrRequestCanceled, ctxErr)
}

// Wrap returns a copy of sentinel with cause attached.
func Wrap(sentinel *Error, cause error) *Error {
	e := *sentinel
	e.Err = cause
	return &e
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
