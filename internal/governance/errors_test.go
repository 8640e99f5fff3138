package governance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("consuming quota: %w", Wrap(ErrLimitReached, errors.New("usage 5/5")))

	assert.ErrorIs(t, err, ErrLimitReached)
	assert.NotErrorIs(t, err, ErrSubscriptionExpired)
	assert.Equal(t, CodeLimitReached, CodeOf(err))
	assert.Equal(t, KindPolicyDenied, KindOf(err))
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrProvider, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "provider failed: boom", err.Error())
	assert.Nil(t, ErrProvider.Err, "sentinel must not be mutated")
}

func TestRateLimited_CarriesRetryAfter(t *testing.T) {
	err := RateLimited(30 * time.Second)

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 30*time.Second, err.RetryAfter)
	assert.Zero(t, ErrRateLimited.RetryAfter)
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestCanceled_ClassifiesContextErrors(t *testing.T) {
	timeout := Canceled(context.DeadlineExceeded)
	assert.ErrorIs(t, timeout, ErrRequestTimeout)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
	assert.Equal(t, KindCanceled, KindOf(timeout))

	canceled := Canceled(context.Canceled)
	assert.ErrorIs(t, canceled, ErrRequestCanceled)
	assert.ErrorIs(t, canceled, context.Canceled)
}
