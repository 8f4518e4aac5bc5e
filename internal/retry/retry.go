// Package retry wraps single network operations with bounded
// exponential-backoff retry.
package retry

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Controller retries one network call per Do invocation. It must not wrap
// multi-step sequences, so that a failure is attributable to one specific
// operation and retried in isolation.
type Controller struct {
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger

	// sleep is swappable in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a retry controller with the given attempt limit and base delay.
func New(maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Controller {
	return &Controller{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// Do runs op, retrying transient failures with exponential backoff
// (base * 2^(attempt-1)) up to the attempt limit. After exhaustion the last
// error is propagated. Non-retriable errors stop immediately.
func (c *Controller) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		c.logger.Warn("Operation attempt failed",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			return lastErr
		}
		if !IsRetriable(err) {
			break
		}
		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
}

func (c *Controller) backoff(attempt int) time.Duration {
	return c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetriable classifies an error as a transient network failure.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	// Network-related errors
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "temporary") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "dns") ||
		strings.Contains(errStr, "eof") ||
		// HTTP 5xx server errors
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout")
}
