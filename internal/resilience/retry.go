package resilience

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. The delay before
	// attempt n (n>=2) is BaseDelay * Factor^(n-2). Default: 1s.
	BaseDelay time.Duration

	// MaxDelay caps the backoff duration. Default: 10s.
	MaxDelay time.Duration

	// Factor scales the backoff after each attempt. Default: 2.0.
	Factor float64

	// ShouldRetry optionally overrides the default retryable-error check.
	// If nil, IsRetryable is used, so terminal failure kinds (not-found,
	// unauthorized, rate-limited) always short-circuit.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)

	// Sleep overrides the backoff sleep, letting tests inject a fake clock.
	// If nil, a context-aware timer sleep is used.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns the standard adapter retry configuration.
// Backoff is deterministic (no jitter) so stage timing is reproducible.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Factor:      2.0,
	}
}

// Do executes fn with retry logic according to cfg. Terminal failures are
// surfaced to the caller unchanged in kind; transient failures are retried
// until the attempt ceiling, then the last failure is returned. Context
// cancellation stops retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal executes fn returning a value with retry logic. Same semantics as Do
// but preserves the return value from the successful call.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		if !shouldRetry(lastErr) {
			return zero, lastErr
		}

		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		if err := sleep(ctx, backoffDelay(attempt, cfg)); err != nil {
			return zero, lastErr
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Factor <= 0 {
		cfg.Factor = 2.0
	}
	return cfg
}

// backoffDelay computes the delay after the given zero-based attempt:
// BaseDelay * Factor^attempt, capped at MaxDelay.
func backoffDelay(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Factor, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

func timerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(stage string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying stage call",
			zap.String("stage", stage),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
