package reddit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/soonerrob/rSearch/pkg/config"
	"github.com/soonerrob/rSearch/pkg/logging"
)

// RateLimiter paces calls against the content source. Every call waits out
// the base delay; calls rejected with a rate-limit signal are retried with
// exponential backoff up to MaxRetries, then surfaced as fatal for that
// operation. All other errors propagate immediately.
type RateLimiter struct {
	limiter    *rate.Limiter
	baseDelay  time.Duration
	maxRetries int
	batchSize  int
	logger     *zap.Logger
}

// NewRateLimiter creates a rate limiter from the source configuration
func NewRateLimiter(cfg *config.RedditConfig) *RateLimiter {
	baseDelay := cfg.RequestDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	return &RateLimiter{
		limiter:    rate.NewLimiter(rate.Every(baseDelay), 1),
		baseDelay:  baseDelay,
		maxRetries: maxRetries,
		batchSize:  batchSize,
		logger:     logging.GetLogger().With(zap.String("component", "rate-limiter")),
	}
}

// BaseDelay returns the minimum delay enforced between successive calls
func (r *RateLimiter) BaseDelay() time.Duration {
	return r.baseDelay
}

// BatchSize returns the configured batch size
func (r *RateLimiter) BatchSize() int {
	return r.batchSize
}

// Do executes fn under the rate limit. op names the operation for
// diagnostics when retries are exhausted.
func (r *RateLimiter) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return err
		}
		if attempt == r.maxRetries-1 {
			r.logger.Error("Rate limit exceeded, giving up",
				zap.String("operation", op),
				zap.Int("retries", r.maxRetries))
			return fmt.Errorf("%s: rate limit exceeded after %d retries: %w", op, r.maxRetries, err)
		}

		backoff := r.baseDelay * (1 << attempt)
		r.logger.Warn("Rate limit hit, backing off",
			zap.String("operation", op),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", r.maxRetries))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil
}

// BatchFetch processes items in fixed-size batches, applying fn to each
// item. Per-item failures are logged and skipped; the batch continues.
// A delay of twice the base delay separates batches to smooth burst load.
// Only successfully-processed results are returned, in arrival order.
func BatchFetch[T, R any](ctx context.Context, rl *RateLimiter, items []T, op string, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, 0, len(items))

	for start := 0; start < len(items); start += rl.batchSize {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		end := start + rl.batchSize
		if end > len(items) {
			end = len(items)
		}

		for _, item := range items[start:end] {
			result, err := fn(ctx, item)
			if err != nil {
				if ctx.Err() != nil {
					return results, ctx.Err()
				}
				rl.logger.Error("Batch item failed",
					zap.String("operation", op),
					zap.Error(err))
				continue
			}
			results = append(results, result)
		}

		if end < len(items) {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(2 * rl.baseDelay):
			}
		}
	}

	return results, nil
}
