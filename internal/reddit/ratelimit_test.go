package reddit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/soonerrob/rSearch/pkg/config"
)

func testLimiter(maxRetries, batchSize int) *RateLimiter {
	return NewRateLimiter(&config.RedditConfig{
		RequestDelay: time.Millisecond,
		MaxRetries:   maxRetries,
		BatchSize:    batchSize,
	})
}

func TestDoRetriesRateLimit(t *testing.T) {
	rl := testLimiter(3, 10)

	calls := 0
	err := rl.Do(context.Background(), "test_op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("throttled: %w", ErrRateLimited)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error after recovery: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	rl := testLimiter(3, 10)

	calls := 0
	err := rl.Do(context.Background(), "test_op", func(ctx context.Context) error {
		calls++
		return fmt.Errorf("throttled: %w", ErrRateLimited)
	})

	if err == nil {
		t.Fatal("Expected error after retries exhausted")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited in chain, got: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	rl := testLimiter(3, 10)

	transient := errors.New("connection reset")
	calls := 0
	err := rl.Do(context.Background(), "test_op", func(ctx context.Context) error {
		calls++
		return transient
	})

	if !errors.Is(err, transient) {
		t.Fatalf("Expected transient error propagated, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("Transient errors must not be retried, got %d attempts", calls)
	}
}

func TestBatchFetchSkipsFailures(t *testing.T) {
	rl := testLimiter(3, 2)

	items := []int{1, 2, 3, 4, 5}
	results, err := BatchFetch(context.Background(), rl, items, "test_batch", func(ctx context.Context, n int) (int, error) {
		if n == 3 {
			return 0, errors.New("item failed")
		}
		return n * 10, nil
	})

	if err != nil {
		t.Fatalf("BatchFetch() error: %v", err)
	}

	expected := []int{10, 20, 40, 50}
	if len(results) != len(expected) {
		t.Fatalf("Expected %d results, got %d", len(expected), len(results))
	}
	for i, want := range expected {
		if results[i] != want {
			t.Errorf("results[%d] = %d, want %d (arrival order must hold)", i, results[i], want)
		}
	}
}

func TestBatchFetchCancellation(t *testing.T) {
	rl := testLimiter(3, 1)

	ctx, cancel := context.WithCancel(context.Background())

	items := []int{1, 2, 3, 4, 5}
	processed := 0
	results, err := BatchFetch(ctx, rl, items, "test_cancel", func(ctx context.Context, n int) (int, error) {
		processed++
		if processed == 2 {
			cancel()
		}
		return n, nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got: %v", err)
	}
	if processed >= len(items) {
		t.Error("Cancellation should stop the batch early")
	}
	if len(results) == 0 {
		t.Error("Results processed before cancellation should be returned")
	}
}
