package scraper

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/catalog-scraper/config"
)

// retrier re-issues fetches that failed with a TransportError, backing off
// exponentially up to a cap.
type retrier struct {
	maxRetries int
	base       time.Duration
	max        time.Duration
	metrics    *Metrics

	totalRetries int64
}

func newRetrier(cfg *config.Config, metrics *Metrics) *retrier {
	return &retrier{
		maxRetries: cfg.MaxRetries,
		base:       cfg.RetryBackoff,
		max:        cfg.RetryBackoffMax,
		metrics:    metrics,
	}
}

// Do calls fn until it succeeds, fails with a non-transport error, the retry
// budget is spent, or ctx is done. It returns the number of retries used.
func (r *retrier) Do(ctx context.Context, url string, fn func() (*Page, error)) (*Page, int, error) {
	retries := 0
	for {
		page, err := fn()
		if err == nil {
			return page, retries, nil
		}

		var transport *TransportError
		if !errors.As(err, &transport) || retries >= r.maxRetries {
			return nil, retries, err
		}

		retries++
		atomic.AddInt64(&r.totalRetries, 1)
		r.metrics.IncRetries()

		delay := r.backoff(retries)
		slog.Debug("retrying request",
			slog.String("url", url),
			slog.Int("attempt", retries),
			slog.Duration("backoff", delay),
			slog.Any("error", err),
		)
		if err := sleep(ctx, delay); err != nil {
			return nil, retries, err
		}
	}
}

func (r *retrier) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := r.base
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if r.max > 0 && delay >= r.max {
			break
		}
		if delay > math.MaxInt64/2 {
			return time.Duration(math.MaxInt64)
		}
		delay *= 2
	}
	if r.max > 0 && delay > r.max {
		delay = r.max
	}
	return delay
}

// TotalRetries returns the retries issued across all callers.
func (r *retrier) TotalRetries() int {
	return int(atomic.LoadInt64(&r.totalRetries))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
