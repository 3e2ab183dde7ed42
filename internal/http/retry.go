package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, body)
}

// IsRetryableStatus reports whether a status code is worth retrying.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RetryConfig configures RetryWithContext.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64 // 1 keeps the delay constant
	// ShouldRetry decides whether err is transient. Nil retries everything.
	ShouldRetry func(error) bool
	// OnRetry is called before sleeping ahead of attempt number next.
	OnRetry func(next int, delay time.Duration, err error)
}

// RetryFunc is one attempt of a retried operation; attempt starts at 1.
type RetryFunc[T any] func(attempt int) (T, error)

// RetryWithContext calls fn until it succeeds, returns a non-retryable
// error, or MaxAttempts is exhausted. It returns the last result and error
// so callers can inspect partial data from the final attempt.
func RetryWithContext[T any](ctx context.Context, cfg RetryConfig, fn RetryFunc[T]) (T, error) {
	var (
		result T
		err    error
	)
	attempts := max(cfg.MaxAttempts, 1)
	factor := cfg.BackoffFactor
	if factor <= 0 {
		factor = 1
	}
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		result, err = fn(attempt)
		if err == nil {
			return result, nil
		}
		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
			return result, err
		}
		if attempt == attempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, delay, err)
		}
		if sleepErr := Sleep(ctx, delay); sleepErr != nil {
			return result, sleepErr
		}
		delay = time.Duration(float64(delay) * factor)
	}

	return result, fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
