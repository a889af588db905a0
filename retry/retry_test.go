package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 8 * time.Millisecond}
}

func TestDo_Success(t *testing.T) {
	attempts := 0
	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestDo_FailNThenSucceed(t *testing.T) {
	attempts := 0
	err := fastPolicy(5).Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestDo_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		attempts++
		return expectedErr
	})
	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "should return the original error")
	assert.Equal(t, 3, attempts, "should attempt exactly MaxAttempts times")
}

func TestDo_Permanent(t *testing.T) {
	attempts := 0
	bad := errors.New("bad request")
	err := fastPolicy(5).Do(context.Background(), func(context.Context) error {
		attempts++
		return Permanent(bad)
	})
	assert.Equal(t, bad, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := fastPolicy(10).Do(ctx, func(context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestDo_CallTimeout(t *testing.T) {
	p := fastPolicy(2)
	p.CallTimeout = 10 * time.Millisecond

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, attempts, "each attempt gets its own deadline")
}

func TestDo_InvalidPolicy(t *testing.T) {
	attempts := 0
	op := func(context.Context) error {
		attempts++
		return nil
	}

	assert.ErrorIs(t, Policy{}.Do(context.Background(), op), ErrInvalidMaxAttempts)
	assert.ErrorIs(t, Policy{MaxAttempts: -1}.Do(context.Background(), op), ErrInvalidMaxAttempts)
	assert.ErrorIs(t, Policy{MaxAttempts: 1, BaseDelay: time.Second, MaxDelay: time.Millisecond}.Do(context.Background(), op), ErrInvalidDelay)
	assert.Equal(t, 0, attempts, "should not attempt with an invalid policy")
}

func TestBackoff(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
	assert.Equal(t, 32*time.Second, p.Backoff(5))
	assert.Equal(t, 60*time.Second, p.Backoff(6))
	assert.Equal(t, 60*time.Second, p.Backoff(30))
}

func TestValue(t *testing.T) {
	calls := 0
	v, err := Value(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("flaky")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, calls)
}
