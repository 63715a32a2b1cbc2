package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep() (func(ctx context.Context, d time.Duration) error, *[]time.Duration) {
	var delays []time.Duration
	return func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}, &delays
}

func TestDoValRetriesTransient(t *testing.T) {
	t.Parallel()

	sleep, delays := noSleep()
	calls := 0
	got, err := DoVal(context.Background(), RetryConfig{MaxAttempts: 3, Sleep: sleep},
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", NewStageError(KindTransient, "repository", errors.New("503"))
			}
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestDoValStopsOnTerminal(t *testing.T) {
	t.Parallel()

	sleep, delays := noSleep()
	calls := 0
	_, err := DoVal(context.Background(), RetryConfig{MaxAttempts: 3, Sleep: sleep},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, NewStageError(KindNotFound, "repository", nil)
		})

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
}

func TestDoValExhaustsAttempts(t *testing.T) {
	t.Parallel()

	sleep, _ := noSleep()
	calls := 0
	_, err := DoVal(context.Background(), RetryConfig{MaxAttempts: 3, Sleep: sleep},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, NewStageError(KindTransient, "contact", errors.New("502"))
		})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindTransient, kind)
}

func TestDoValContextCancelStops(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, RetryConfig{MaxAttempts: 5},
		func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, NewStageError(KindTransient, "company", errors.New("reset"))
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffDelayCapped(t *testing.T) {
	t.Parallel()

	cfg := applyDefaults(RetryConfig{})
	assert.Equal(t, time.Second, backoffDelay(0, cfg))
	assert.Equal(t, 2*time.Second, backoffDelay(1, cfg))
	assert.Equal(t, 4*time.Second, backoffDelay(2, cfg))
	assert.Equal(t, 10*time.Second, backoffDelay(5, cfg))
}

func TestDoRunsOnRetryCallback(t *testing.T) {
	t.Parallel()

	sleep, _ := noSleep()
	var attempts []int
	err := Do(context.Background(), RetryConfig{
		MaxAttempts: 3,
		Sleep:       sleep,
		OnRetry:     func(attempt int, err error) { attempts = append(attempts, attempt) },
	}, func(ctx context.Context) error {
		return NewStageError(KindTransient, "tech", errors.New("flaky"))
	})

	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}
