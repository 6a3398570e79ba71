package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulaone/rolesync/internal/retry"
)

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	out, err := retry.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, calls)
}

func TestDo_FailsTwiceThenSucceeds(t *testing.T) {
	calls := 0
	out, err := retry.Do(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls <= 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("permanent")
	_, err := retry.Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, boom
	}, 2, time.Millisecond)

	require.Error(t, err)
	// maxAttempts=2 reintentos → 3 invocaciones totales
	assert.Equal(t, 3, calls)
	// El último error nunca se traga
	assert.ErrorIs(t, err, boom)
}

func TestDo_ExponentialDelays(t *testing.T) {
	var stamps []time.Time
	base := 20 * time.Millisecond

	_, _ = retry.Do(context.Background(), func(context.Context) (int, error) {
		stamps = append(stamps, time.Now())
		return 0, errors.New("nope")
	}, 2, base)

	require.Len(t, stamps, 3)
	// Esperas: base, 2*base (tolerancia generosa para CI)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), base)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 2*base)
}

func TestDo_ContextCancelAbortsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := retry.Do(ctx, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	}, 5, time.Second)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDo_NegativeMaxAttemptsMeansSingleTry(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("x")
	}, -1, time.Millisecond)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
