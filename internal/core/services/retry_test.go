package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

func TestRetryPolicy_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := fastRetry(3).Do(context.Background(), "embed", func(_ context.Context) error {
		calls++
		if calls < 3 {
			return transientErr
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_StopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := fastRetry(3).Do(context.Background(), "embed", func(_ context.Context) error {
		calls++
		return transientErr
	})

	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_PermanentErrorNotRetried(t *testing.T) {
	permanent := errors.New("model not found")
	calls := 0
	err := fastRetry(5).Do(context.Background(), "generate", func(_ context.Context) error {
		calls++
		return permanent
	})

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_NoRetry(t *testing.T) {
	calls := 0
	err := NoRetry.Do(context.Background(), "embed", func(_ context.Context) error {
		calls++
		return transientErr
	})

	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ContextCancelledStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 10, InitialInterval: time.Hour, MaxInterval: time.Hour}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, "embed", func(_ context.Context) error {
			calls++
			return transientErr
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop after cancellation")
	}
}

func TestRetryPolicyFromSettings(t *testing.T) {
	p := RetryPolicyFromSettings(domain.DefaultAppSettings().Retry)

	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, p.InitialInterval)
	assert.Equal(t, 5*time.Second, p.MaxInterval)
	assert.Equal(t, 30*time.Second, p.MaxElapsed)
}
