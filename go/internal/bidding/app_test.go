package bidding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appFixture struct {
	app   *App
	repo  *memRepo
	cache *memCache
	clock *clockwork.FakeClock
}

func newAppFixture() *appFixture {
	clock := clockwork.NewFakeClock()
	repo := newMemRepo()
	cache := newMemCache()
	return &appFixture{
		app:   NewApp(repo, cache, clock),
		repo:  repo,
		cache: cache,
		clock: clock,
	}
}

func bidReq(f *appFixture, amount int64, email, name string) PlaceBidRequest {
	for id := range f.repo.products {
		return PlaceBidRequest{ProductID: id, Amount: decimal.NewFromInt(amount), BidderEmail: email, BidderName: name}
	}
	panic("no product")
}

func TestPlaceBidScenario(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture()
	now := f.clock.Now()
	id := f.repo.addProduct(500, now.Add(-time.Minute), now.Add(time.Hour))
	f.repo.wallets["alice@example.com"] = decimal.NewFromInt(1000)

	_, err := f.app.PlaceBid(ctx, bidReq(f, 500, "alice@example.com", "Alice"))
	require.ErrorIs(t, err, apperr.ErrBidTooLow)
	var tooLow *apperr.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, "500.01", tooLow.Minimum.String())

	res, err := f.app.PlaceBid(ctx, bidReq(f, 501, "alice@example.com", "Alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Bid.Seq)

	state, err := f.app.GetBidState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "501", state.CurrentBid.String())
	assert.Equal(t, "Alice", state.BidderName)
}

func TestPlaceBidRefundsPreviousBidder(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture()
	now := f.clock.Now()
	f.repo.addProduct(100, now.Add(-time.Minute), now.Add(time.Hour))
	f.repo.wallets["alice@example.com"] = decimal.NewFromInt(300)
	f.repo.wallets["bob@example.com"] = decimal.NewFromInt(300)

	_, err := f.app.PlaceBid(ctx, bidReq(f, 200, "alice@example.com", "Alice"))
	require.NoError(t, err)
	assert.Equal(t, "100", f.repo.wallets["alice@example.com"].String())

	res, err := f.app.PlaceBid(ctx, bidReq(f, 250, "bob@example.com", "Bob"))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", res.PreviousBidderEmail)
	assert.Equal(t, "200", res.PreviousAmount.String())
	assert.Equal(t, "300", f.repo.wallets["alice@example.com"].String())
	assert.Equal(t, "50", f.repo.wallets["bob@example.com"].String())
}

func TestPlaceBidInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture()
	now := f.clock.Now()
	f.repo.addProduct(100, now.Add(-time.Minute), now.Add(time.Hour))
	f.repo.wallets["alice@example.com"] = decimal.NewFromInt(150)

	_, err := f.app.PlaceBid(ctx, bidReq(f, 200, "alice@example.com", "Alice"))
	require.ErrorIs(t, err, apperr.ErrInsufficientBalance)
}

func TestPlaceBidOutsideWindow(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture()
	now := f.clock.Now()
	f.repo.addProduct(100, now.Add(time.Minute), now.Add(time.Hour))
	f.repo.wallets["alice@example.com"] = decimal.NewFromInt(1000)

	_, err := f.app.PlaceBid(ctx, bidReq(f, 200, "alice@example.com", "Alice"))
	require.ErrorIs(t, err, apperr.ErrAuctionNotActive)

	f.clock.Advance(2 * time.Hour)
	_, err = f.app.PlaceBid(ctx, bidReq(f, 200, "alice@example.com", "Alice"))
	require.ErrorIs(t, err, apperr.ErrAuctionNotActive)
}

func TestPlaceBidValidation(t *testing.T) {
	f := newAppFixture()
	now := f.clock.Now()
	f.repo.addProduct(100, now, now.Add(time.Hour))

	_, err := f.app.PlaceBid(context.Background(), bidReq(f, 0, "not-an-email", ""))
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestConcurrentBidsSerialize(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture()
	now := f.clock.Now()
	id := f.repo.addProduct(100, now.Add(-time.Minute), now.Add(time.Hour))
	f.repo.wallets["alice@example.com"] = decimal.NewFromInt(100000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.app.PlaceBid(ctx, PlaceBidRequest{ProductID: id, Amount: decimal.NewFromInt(150), BidderEmail: "alice@example.com", BidderName: "Alice"})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted, "only one bid of the same amount can win the compare-and-set")
	state, err := f.repo.GetBidState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Seq)
}

func TestGetBidStateUsesCache(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture()
	now := f.clock.Now()
	id := f.repo.addProduct(100, now, now.Add(time.Hour))

	first, err := f.app.GetBidState(ctx, id)
	require.NoError(t, err)

	// repo changes are invisible until the cache is advanced
	f.repo.products[id].CurrentBid = decimal.NewFromInt(999)
	second, err := f.app.GetBidState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.CurrentBid.String(), second.CurrentBid.String())
	assert.Equal(t, 2, f.cache.gets)
}

func TestPlaceBidNotifies(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture()
	n := &recordingNotifier{}
	f.app.SetNotifier(n)
	now := f.clock.Now()
	f.repo.addProduct(100, now.Add(-time.Minute), now.Add(time.Hour))
	f.repo.wallets["alice@example.com"] = decimal.NewFromInt(1000)

	_, err := f.app.PlaceBid(ctx, bidReq(f, 101, "alice@example.com", "Alice"))
	require.NoError(t, err)
	require.Len(t, n.results, 1)
	assert.Equal(t, "101", n.results[0].Snapshot().CurrentBid.String())
}

func TestListBidsClampsLimit(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture()
	now := f.clock.Now()
	id := f.repo.addProduct(100, now.Add(-time.Minute), now.Add(time.Hour))
	f.repo.wallets["alice@example.com"] = decimal.NewFromInt(100000)

	for amount := int64(101); amount <= 130; amount++ {
		_, err := f.app.PlaceBid(ctx, bidReq(f, amount, "alice@example.com", "Alice"))
		require.NoError(t, err)
	}

	bids, err := f.app.ListBids(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, bids, 20)
	assert.Equal(t, int64(30), bids[0].Seq)
}
