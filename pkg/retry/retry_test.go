package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditsaver/pkg/config"
	errs "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
)

func fastConfig(attempts int) *Config {
	return &Config{
		MaxAttempts: attempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 140*time.Millisecond)
		assert.LessOrEqual(t, delay, 260*time.Millisecond)
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	var retried []int

	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
	}

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ErrorTypeServerError, 503, "server error")
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	authErr := errs.New(errs.ErrorTypeAuth, 401, "authentication required")

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return authErr
	}, fastConfig(5))

	assert.Equal(t, 1, attempts)
	assert.Same(t, authErr, err)
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errs.New(errs.ErrorTypeNetwork, 0, "network error")
	}, fastConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
	assert.True(t, errs.Is(err, errs.ErrorTypeNetwork))
}

func TestDoSingleAttemptReturnsErrorUnwrapped(t *testing.T) {
	attempts := 0
	serverErr := errs.New(errs.ErrorTypeServerError, 500, "server error")

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return serverErr
	}, NoRetry())

	assert.Equal(t, 1, attempts)
	assert.Same(t, serverErr, err)
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		OnRetry: func(int, error, time.Duration) {
			cancel()
		},
	}

	err := Do(ctx, func(ctx context.Context) error {
		return errs.New(errs.ErrorTypeTimeout, 0, "request timeout")
	}, cfg)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errs.New(errs.ErrorTypeRateLimit, 429, "rate limit exceeded")
		}
		return "t3_abc", nil
	}, fastConfig(2))

	require.NoError(t, err)
	assert.Equal(t, "t3_abc", got)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.True(t, DefaultRetryIf(context.DeadlineExceeded))
	assert.False(t, DefaultRetryIf(errors.New("untyped")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeParsing, 200, "bad json")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeNotFound, 404, "resource not found")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeServerError, 502, "server error")))
}

func TestFromConfig(t *testing.T) {
	disabled := FromConfig(config.RetryConfig{Enabled: false, MaxAttempts: 5}, nil)
	assert.Equal(t, 1, disabled.MaxAttempts)
	assert.NotNil(t, disabled.Logger)

	enabled := FromConfig(config.RetryConfig{
		Enabled:     true,
		MaxAttempts: 4,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    50 * time.Millisecond,
		Multiplier:  2,
	}, logger.NewTestLogger())
	assert.Equal(t, 4, enabled.MaxAttempts)

	backoff, ok := enabled.Backoff.(*ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, 10*time.Millisecond, backoff.BaseDelay)
	assert.Equal(t, 50*time.Millisecond, backoff.MaxDelay)
}

func TestRetryLogging(t *testing.T) {
	tl := logger.NewTestLogger()
	cfg := fastConfig(2)
	cfg.Logger = tl

	_ = Do(context.Background(), func(ctx context.Context) error {
		return errs.New(errs.ErrorTypeNetwork, 0, "network error")
	}, cfg)

	assert.True(t, tl.HasMessage("retrying operation"))
	assert.True(t, tl.HasMessage("max retry attempts exceeded"))
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
