package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const pollEvery = 5 * time.Millisecond

func testConfig() SchedulerConfig {
	return SchedulerConfig{Workers: 2, BatchSize: 10, IdlePoll: 5 * time.Second, RetryDelay: time.Second}
}

func runScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, s.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func blockUntil(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, n))
}

func TestSchedulerSettlesWhenAuctionEnds(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newMemStore()
	store.addUser("bob@example.com", 1000, 501)
	bob := store.user("bob@example.com")
	p := store.addProduct(clock.Now().Add(10*time.Second), &bob, 501)

	settler := newCountingSettler(NewSettler(store, clock, nil))
	runScheduler(t, NewScheduler(store, settler, clock, testConfig()))

	blockUntil(t, clock, 1)
	assert.Equal(t, 0, settler.count(p.ID))

	clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return store.orderCount() == 1 }, waitFor, pollEvery)

	blockUntil(t, clock, 1)
	clock.Advance(5 * time.Second)
	blockUntil(t, clock, 1)

	assert.Equal(t, 1, settler.count(p.ID))
	assert.Equal(t, 1, store.orderCount())
}

func TestSchedulerNeverSettlesSameProductTwiceAtOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newMemStore()
	p := store.addProduct(clock.Now(), nil, 100)

	settler := newCountingSettler(NewSettler(store, clock, nil))
	settler.gate = make(chan struct{})
	sched := NewScheduler(store, settler, clock, testConfig())
	runScheduler(t, sched)

	require.Eventually(t, func() bool { return settler.count(p.ID) == 1 }, waitFor, pollEvery)

	for i := 0; i < 3; i++ {
		blockUntil(t, clock, 1)
		clock.Advance(time.Second)
	}
	assert.Equal(t, 1, settler.count(p.ID))
	assert.Equal(t, 1, sched.InFlight())

	close(settler.gate)
	require.Eventually(t, func() bool {
		got, _ := store.product(p.ID)
		return got.Status == models.ProductStatusClosed
	}, waitFor, pollEvery)
	require.Eventually(t, func() bool { return sched.InFlight() == 0 }, waitFor, pollEvery)
	assert.Equal(t, 1, settler.count(p.ID))
}

func TestSchedulerWakeRereadsDeadline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newMemStore()

	settler := newCountingSettler(NewSettler(store, clock, nil))
	sched := NewScheduler(store, settler, clock, testConfig())
	runScheduler(t, sched)

	blockUntil(t, clock, 1)

	p := store.addProduct(clock.Now().Add(-time.Second), nil, 100)
	sched.Wake()

	require.Eventually(t, func() bool {
		got, _ := store.product(p.ID)
		return got.Status == models.ProductStatusClosed
	}, waitFor, pollEvery)
	assert.Equal(t, 1, settler.count(p.ID))
}
