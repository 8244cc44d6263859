package circuit_breaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Astemirdum/odl-service/pkg/circuit_breaker"
	"github.com/stretchr/testify/require"
)

func Test_circuitBreaker_Call(t *testing.T) {
	failing := func() error { return errors.New("status server down") }
	ok := func() error { return nil }

	cb := circuit_breaker.New(10, 50*time.Millisecond, 0.5, 3)

	for i := 0; i < 10; i++ {
		require.NoError(t, cb.Call(ok))
	}

	// trip the breaker
	for i := 0; i < 10; i++ {
		_ = cb.Call(failing)
	}
	err := cb.Call(ok)
	require.ErrorIs(t, err, circuit_breaker.ErrOpenCB)

	// half-open after the timeout, recover with consecutive successes
	time.Sleep(60 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, cb.Call(ok))
	}
	require.NoError(t, cb.Call(ok))

	// half-open failure snaps back to open
	for i := 0; i < 10; i++ {
		_ = cb.Call(failing)
	}
	time.Sleep(60 * time.Millisecond)
	require.Error(t, cb.Call(failing))
	require.ErrorIs(t, cb.Call(ok), circuit_breaker.ErrOpenCB)
}
