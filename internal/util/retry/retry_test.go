package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithExponentialBackoff_Success(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("server is locked")
		}
		return nil
	}, WithInitialDelay(5*time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithExponentialBackoff_MaxRetries(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return errors.New("persistent error")
	}, WithMaxRetries(2), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 retries")
	assert.Equal(t, 3, attempts)
}

func TestWithExponentialBackoff_FatalStopsImmediately(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return Fatal(errors.New("invalid server type"))
	}, WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithExponentialBackoff(ctx, func() error {
		return errors.New("transient")
	}, WithInitialDelay(50*time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFatal_Nil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Fatal(nil))
	assert.False(t, IsFatal(errors.New("plain")))
}

func TestPoll_DoneImmediately(t *testing.T) {
	t.Parallel()
	calls := 0

	done, err := Poll(context.Background(), time.Millisecond, time.Second, func() (bool, error) {
		calls++
		return true, nil
	})

	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, calls)
}

func TestPoll_DoneAfterSeveralChecks(t *testing.T) {
	t.Parallel()
	calls := 0

	done, err := Poll(context.Background(), time.Millisecond, time.Second, func() (bool, error) {
		calls++
		return calls == 3, nil
	})

	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 3, calls)
}

func TestPoll_TimeoutIsNotAnError(t *testing.T) {
	t.Parallel()

	done, err := Poll(context.Background(), 5*time.Millisecond, 20*time.Millisecond, func() (bool, error) {
		return false, nil
	})

	require.NoError(t, err)
	assert.False(t, done)
}

func TestPoll_CheckErrorStops(t *testing.T) {
	t.Parallel()
	boom := errors.New("api unavailable")

	done, err := Poll(context.Background(), time.Millisecond, time.Second, func() (bool, error) {
		return false, boom
	})

	assert.False(t, done)
	assert.ErrorIs(t, err, boom)
}

func TestPoll_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done, err := Poll(ctx, 10*time.Millisecond, time.Second, func() (bool, error) {
		return false, nil
	})

	assert.False(t, done)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithExponentialBackoff_OnRetry(t *testing.T) {
	t.Parallel()
	var attempts []int
	var delays []time.Duration

	err := WithExponentialBackoff(context.Background(), func() error {
		return errors.New("locked")
	},
		WithMaxRetries(3),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(3*time.Millisecond),
		WithOnRetry(func(attempt int, _ error, delay time.Duration) {
			attempts = append(attempts, attempt)
			delays = append(delays, delay)
		}),
	)

	require.Error(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, delays)
}
