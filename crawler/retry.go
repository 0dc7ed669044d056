package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/gamescout/core"
)

// RetryPolicy bounds the attempts made for one identifier.
type RetryPolicy struct {
	// MaxTries is the total number of calls, including the first.
	MaxTries int
	// Delay is the fixed pause between transient failures.
	Delay time.Duration
}

// DefaultRetryPolicy returns five tries with a five second pause.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries: 5,
		Delay:    5 * time.Second,
	}
}

// Validate checks the policy allows at least one attempt.
func (p RetryPolicy) Validate() error {
	if p.MaxTries <= 0 {
		return ErrInvalidMaxTries
	}
	return nil
}

// Retrier wraps a DetailFetcher with a RetryPolicy.
type Retrier struct {
	fetcher DetailFetcher
	policy  RetryPolicy
	logger  *slog.Logger
}

// NewRetrier creates a Retrier. A nil logger means slog.Default().
func NewRetrier(fetcher DetailFetcher, policy RetryPolicy, logger *slog.Logger) (*Retrier, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		fetcher: fetcher,
		policy:  policy,
		logger:  logger.With("component", "retrier"),
	}, nil
}

// FetchWithRetry returns the detail for id, nil when the item does not
// exist, or a placeholder once every attempt has failed transiently.
// The only error it returns is the context's, when the run is cancelled.
func (r *Retrier) FetchWithRetry(ctx context.Context, id core.AppID) (*core.AppDetail, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxTries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := r.fetcher.FetchDetail(ctx, id)
		switch result.Outcome {
		case Found:
			if attempt > 1 {
				r.logger.Debug("fetch succeeded after retry", "appid", id, "attempt", attempt)
			}
			return result.Detail, nil
		case NotFound:
			r.logger.Warn("app does not exist in the detail api", "appid", id)
			return nil, nil
		}

		lastErr = result.Err
		r.logger.Debug("fetch failed, will retry", "appid", id, "attempt", attempt, "maxTries", r.policy.MaxTries, "err", lastErr)

		if attempt == r.policy.MaxTries {
			break
		}

		timer := time.NewTimer(r.policy.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	r.logger.Error("replacing detail with placeholder", "appid", id, "tries", r.policy.MaxTries, "err", ErrRetryExhausted, "cause", lastErr)
	return core.NewPlaceholder(id), nil
}
