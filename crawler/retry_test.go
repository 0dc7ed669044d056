package crawler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/gamescout/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(tries int) RetryPolicy {
	return RetryPolicy{MaxTries: tries, Delay: time.Millisecond}
}

func TestRetryPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultRetryPolicy().Validate())
	assert.ErrorIs(t, RetryPolicy{MaxTries: 0}.Validate(), ErrInvalidMaxTries)
	assert.ErrorIs(t, RetryPolicy{MaxTries: -1}.Validate(), ErrInvalidMaxTries)
}

func TestNewRetrier_Validation(t *testing.T) {
	_, err := NewRetrier(nil, DefaultRetryPolicy(), nil)
	assert.ErrorIs(t, err, ErrFetcherRequired)

	fetcher := DetailFetcherFunc(func(ctx context.Context, id core.AppID) DetailResult { return notFoundResult() })
	_, err = NewRetrier(fetcher, RetryPolicy{}, nil)
	assert.ErrorIs(t, err, ErrInvalidMaxTries)
}

func TestRetrier_Found(t *testing.T) {
	var calls atomic.Int32
	fetcher := DetailFetcherFunc(func(ctx context.Context, id core.AppID) DetailResult {
		calls.Add(1)
		return foundResult(&core.AppDetail{Type: "game", Name: "Found", SteamAppID: id})
	})
	r, err := NewRetrier(fetcher, fastPolicy(3), nil)
	require.NoError(t, err)

	detail, err := r.FetchWithRetry(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "Found", detail.Name)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetrier_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	fetcher := DetailFetcherFunc(func(ctx context.Context, id core.AppID) DetailResult {
		calls.Add(1)
		return notFoundResult()
	})
	r, err := NewRetrier(fetcher, fastPolicy(5), nil)
	require.NoError(t, err)

	detail, err := r.FetchWithRetry(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, detail)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetrier_ExhaustionYieldsPlaceholder(t *testing.T) {
	var calls atomic.Int32
	fetcher := DetailFetcherFunc(func(ctx context.Context, id core.AppID) DetailResult {
		calls.Add(1)
		return transientResult(500, errors.New("boom"))
	})
	r, err := NewRetrier(fetcher, fastPolicy(3), nil)
	require.NoError(t, err)

	detail, err := r.FetchWithRetry(context.Background(), 99)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.True(t, detail.IsPlaceholder())
	assert.Equal(t, core.AppID(99), detail.SteamAppID)
	assert.Equal(t, core.UnavailableMarker, detail.Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetrier_RecoversAfterTransient(t *testing.T) {
	var calls atomic.Int32
	fetcher := DetailFetcherFunc(func(ctx context.Context, id core.AppID) DetailResult {
		if calls.Add(1) < 3 {
			return transientResult(429, errors.New("slow down"))
		}
		return foundResult(&core.AppDetail{Type: "game", Name: "Third time", SteamAppID: id})
	})
	r, err := NewRetrier(fetcher, fastPolicy(5), nil)
	require.NoError(t, err)

	detail, err := r.FetchWithRetry(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Third time", detail.Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetrier_ContextCancelled(t *testing.T) {
	fetcher := DetailFetcherFunc(func(ctx context.Context, id core.AppID) DetailResult {
		return transientResult(500, errors.New("boom"))
	})
	r, err := NewRetrier(fetcher, RetryPolicy{MaxTries: 5, Delay: time.Hour}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	detail, err := r.FetchWithRetry(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, detail)
}
