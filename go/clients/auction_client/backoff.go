package auction_client

import (
	"context"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
)

// Backoff is an exponential reconnect delay with proportional jitter.
type Backoff struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
	// Jitter spreads each delay by up to this fraction either way.
	Jitter float64

	clock  clockwork.Clock
	random func() float64
	next   time.Duration
}

// NewBackoff starts at 500ms, doubles up to 30s and jitters by 20%.
func NewBackoff(clock clockwork.Clock) *Backoff {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	b := &Backoff{
		Base:   500 * time.Millisecond,
		Factor: 2,
		Max:    30 * time.Second,
		Jitter: 0.2,
		clock:  clock,
		random: rand.Float64,
	}
	b.Reset()
	return b
}

// Reset goes back to the base delay after a successful connect.
func (b *Backoff) Reset() {
	b.next = b.Base
}

// Next returns the delay to wait now and advances the schedule.
func (b *Backoff) Next() time.Duration {
	d := b.next
	grown := time.Duration(float64(b.next) * b.Factor)
	if grown > b.Max {
		grown = b.Max
	}
	b.next = grown

	if b.Jitter > 0 {
		spread := (b.random()*2 - 1) * b.Jitter
		d = time.Duration(float64(d) * (1 + spread))
	}
	return d
}

// Wait sleeps for the next delay. It returns ctx.Err() if ctx ends first.
func (b *Backoff) Wait(ctx context.Context) error {
	timer := b.clock.NewTimer(b.Next())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
