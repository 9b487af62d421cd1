package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	assert.Equal(t, 1*time.Second, Backoff(1))
	assert.Equal(t, 2*time.Second, Backoff(2))
	assert.Equal(t, 8*time.Second, Backoff(4))
	assert.Equal(t, 16*time.Second, Backoff(5))
	assert.Equal(t, 16*time.Second, Backoff(40))
	assert.Equal(t, 1*time.Second, Backoff(0))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, Sleep(ctx, time.Minute))
}

func TestSleep_Elapsed(t *testing.T) {
	assert.True(t, Sleep(context.Background(), time.Millisecond))
}

func noDelay(t *testing.T) {
	t.Helper()
	delay = func(int) time.Duration { return time.Millisecond }
	t.Cleanup(func() { delay = Backoff })
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	noDelay(t)

	calls := 0
	attempts, err := Do(context.Background(), 5, "connect", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUp(t *testing.T) {
	noDelay(t)

	refused := errors.New("refused")
	attempts, err := Do(context.Background(), 2, "connect", func(context.Context) error {
		return refused
	})

	require.ErrorIs(t, err, refused)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, err.Error(), "connect failed after 2 attempts")
}

func TestDo_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, 3, "connect", func(context.Context) error {
		return errors.New("refused")
	})

	require.ErrorIs(t, err, context.Canceled)
}
