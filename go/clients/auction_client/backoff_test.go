package auction_client

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesToCap(t *testing.T) {
	b := NewBackoff(clockwork.NewFakeClock())
	b.Jitter = 0

	want := []time.Duration{
		500 * time.Millisecond, time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, b.Next(), "attempt %d", i)
	}

	b.Reset()
	assert.Equal(t, 500*time.Millisecond, b.Next())
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff(clockwork.NewFakeClock())

	b.random = func() float64 { return 0 }
	assert.Equal(t, 400*time.Millisecond, b.Next())

	b.random = func() float64 { return 0.9999999 }
	d := b.Next()
	assert.InDelta(t, float64(1200*time.Millisecond), float64(d), float64(time.Millisecond))
}

func TestBackoffWaitHonoursContext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewBackoff(clock)
	b.Jitter = 0

	done := make(chan error, 1)
	go func() { done <- b.Wait(context.Background()) }()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(500 * time.Millisecond)
	require.NoError(t, <-done)

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	assert.ErrorIs(t, b.Wait(cancelled), context.Canceled)
}
