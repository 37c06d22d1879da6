package retry

import (
	"context"
	"math/rand"
	"time"

	"ai-docchat-be/pkg/apperrors"
)

// Policy retries an operation with full exponential backoff plus uniform
// jitter. Only errors classified as retryable are retried; everything else
// aborts on the first failure.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // backoff base, doubled per attempt
	MaxDelay    time.Duration // cap applied before jitter, 0 means no cap
	Jitter      time.Duration // max uniform jitter added to each delay
}

// Default mirrors the upstream client settings used across the pipeline:
// three attempts, 1s base, 30s cap.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      1 * time.Second,
	}
}

// Do runs op until it succeeds, fails with a non-retryable error, exhausts
// the attempt budget, or ctx is done. The last error seen is returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !apperrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		if err := p.sleep(ctx, p.delay(attempt)); err != nil {
			return err
		}
	}

	return lastErr
}

// delay computes base*2^attempt, capped, plus uniform jitter.
func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
