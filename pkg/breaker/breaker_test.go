package breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openshelf/lending-service/pkg/breaker"
)

func TestBreaker_Call(t *testing.T) {
	t.Parallel()

	errService := errors.New("service error")
	ok := func() error { return nil }
	fail := func() error { return errService }

	t.Run("stays closed on successes", func(t *testing.T) {
		t.Parallel()
		b := breaker.New(10, time.Second, 0.5, 2)
		for i := 0; i < 50; i++ {
			require.NoError(t, b.Call(ok))
		}
	})

	t.Run("opens after failure percentile and rejects fast", func(t *testing.T) {
		t.Parallel()
		b := breaker.New(10, time.Minute, 0.5, 2)
		for i := 0; i < 5; i++ {
			require.ErrorIs(t, b.Call(fail), errService)
		}
		require.ErrorIs(t, b.Call(ok), breaker.ErrOpen)
	})

	t.Run("recovers through half-open", func(t *testing.T) {
		t.Parallel()
		b := breaker.New(4, 10*time.Millisecond, 0.5, 1)
		require.ErrorIs(t, b.Call(fail), errService)
		require.ErrorIs(t, b.Call(fail), errService)
		require.ErrorIs(t, b.Call(ok), breaker.ErrOpen)

		time.Sleep(20 * time.Millisecond)

		// half-open: consecutive successes close the breaker again
		require.NoError(t, b.Call(ok))
		require.NoError(t, b.Call(ok))
		require.NoError(t, b.Call(ok))
	})

	t.Run("half-open failure reopens", func(t *testing.T) {
		t.Parallel()
		b := breaker.New(4, 10*time.Millisecond, 0.5, 2)
		require.ErrorIs(t, b.Call(fail), errService)
		require.ErrorIs(t, b.Call(fail), errService)
		require.ErrorIs(t, b.Call(ok), breaker.ErrOpen)

		time.Sleep(20 * time.Millisecond)

		require.ErrorIs(t, b.Call(fail), errService)
		require.ErrorIs(t, b.Call(ok), breaker.ErrOpen)
	})

	t.Run("reset closes immediately", func(t *testing.T) {
		t.Parallel()
		b := breaker.New(4, time.Minute, 0.5, 2)
		require.ErrorIs(t, b.Call(fail), errService)
		require.ErrorIs(t, b.Call(fail), errService)
		require.ErrorIs(t, b.Call(ok), breaker.ErrOpen)

		b.Reset()
		require.NoError(t, b.Call(ok))
	})
}
