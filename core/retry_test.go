package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

func newRetryPolicy(base, max time.Duration, attempts uint, elapsed time.Duration) *core.RetryPolicy {
	cfg := core.DefaultRelayConfig()
	cfg.RetryBaseDelay = base
	cfg.RetryMaxDelay = max
	cfg.RetryMaxAttempts = attempts
	cfg.RetryMaxElapsed = elapsed
	cfg.SubmitDelayJitter = 0
	return core.NewRetryPolicy(cfg)
}

func TestNextDelay(t *testing.T) {
	p := newRetryPolicy(time.Second, 10*time.Second, 5, 0)
	cases := map[uint]time.Duration{
		0:   0,
		1:   time.Second,
		2:   2 * time.Second,
		3:   4 * time.Second,
		4:   8 * time.Second,
		5:   10 * time.Second,
		6:   10 * time.Second,
		200: 10 * time.Second,
	}
	for attempt, want := range cases {
		require.Equal(t, want, p.NextDelay(attempt), "attempt %d", attempt)
	}
}

func TestNextDelayUncapped(t *testing.T) {
	p := newRetryPolicy(time.Second, 0, 5, 0)
	require.Equal(t, 16*time.Second, p.NextDelay(5))
	// must not overflow
	require.Positive(t, p.NextDelay(100))
}

func TestNextDelayIsDeterministic(t *testing.T) {
	a := newRetryPolicy(500*time.Millisecond, time.Minute, 5, 0)
	b := newRetryPolicy(500*time.Millisecond, time.Minute, 5, 0)
	for attempt := uint(0); attempt < 10; attempt++ {
		require.Equal(t, a.NextDelay(attempt), b.NextDelay(attempt))
	}
}

func TestShouldAbandon(t *testing.T) {
	p := newRetryPolicy(time.Second, time.Minute, 3, time.Minute)
	require.False(t, p.ShouldAbandon(1, 0))
	require.False(t, p.ShouldAbandon(2, 59*time.Second))
	require.True(t, p.ShouldAbandon(3, 0))
	require.True(t, p.ShouldAbandon(1, time.Minute))

	unbounded := newRetryPolicy(time.Second, time.Minute, 3, 0)
	require.False(t, unbounded.ShouldAbandon(2, 24*time.Hour))
}

func TestJitterDelay(t *testing.T) {
	cfg := core.DefaultRelayConfig()
	cfg.SubmitDelayJitter = 100 * time.Millisecond
	p := core.NewRetryPolicy(cfg)
	for i := 0; i < 100; i++ {
		d := p.JitterDelay()
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.Less(t, d, cfg.SubmitDelayJitter)
	}

	cfg.SubmitDelayJitter = 0
	require.Zero(t, core.NewRetryPolicy(cfg).JitterDelay())
}
