package bidding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/shopspring/decimal"
)

// memRepo applies the same compare-and-set rules as the SQL repository.
type memRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.BidSnapshot
	wallets  map[string]decimal.Decimal // available funds
	bids     []models.Bid
}

func newMemRepo() *memRepo {
	return &memRepo{
		products: make(map[uuid.UUID]*models.BidSnapshot),
		wallets:  make(map[string]decimal.Decimal),
	}
}

func (r *memRepo) addProduct(price int64, start, end time.Time) uuid.UUID {
	id := uuid.New()
	r.products[id] = &models.BidSnapshot{
		ProductID:  id,
		CurrentBid: decimal.NewFromInt(price),
		Status:     models.ProductStatusActive,
		StartAt:    start,
		EndAt:      end,
	}
	return id
}

func (r *memRepo) PlaceBid(_ context.Context, arg PlaceBidParams) (*BidResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[arg.ProductID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", arg.ProductID, apperr.ErrNotFound)
	}
	if p.Status != models.ProductStatusActive || arg.Now.Before(p.StartAt) || !arg.Now.Before(p.EndAt) {
		return nil, apperr.ErrAuctionNotActive
	}
	if !arg.Amount.GreaterThan(p.CurrentBid) {
		return nil, apperr.NewBidTooLow(p.CurrentBid)
	}

	prevAmount, prevEmail, prevName := p.CurrentBid, p.BidderEmail, p.BidderName
	wallets := make(map[string]decimal.Decimal, len(r.wallets))
	for k, v := range r.wallets {
		wallets[k] = v
	}
	if prevEmail != "" {
		wallets[prevEmail] = wallets[prevEmail].Add(prevAmount)
	}
	avail, ok := wallets[arg.BidderEmail]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if avail.LessThan(arg.Amount) {
		return nil, apperr.ErrInsufficientBalance
	}
	wallets[arg.BidderEmail] = avail.Sub(arg.Amount)
	r.wallets = wallets

	p.CurrentBid = arg.Amount
	p.BidderEmail = arg.BidderEmail
	p.BidderName = arg.BidderName
	p.Seq++

	bid := models.Bid{ID: uuid.New(), ProductID: arg.ProductID, BidderEmail: arg.BidderEmail, BidderName: arg.BidderName, Amount: arg.Amount, Seq: p.Seq, PlacedAt: arg.Now}
	r.bids = append(r.bids, bid)
	return &BidResult{
		Bid:                 bid,
		PreviousAmount:      prevAmount,
		PreviousBidderEmail: prevEmail,
		PreviousBidderName:  prevName,
		StartAt:             p.StartAt,
		EndAt:               p.EndAt,
	}, nil
}

func (r *memRepo) GetBidState(_ context.Context, productID uuid.UUID) (*models.BidSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	snap := *p
	return &snap, nil
}

func (r *memRepo) ListBids(_ context.Context, productID uuid.UUID, limit int32) ([]models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Bid
	for i := len(r.bids) - 1; i >= 0 && int32(len(out)) < limit; i-- {
		if r.bids[i].ProductID == productID {
			out = append(out, r.bids[i])
		}
	}
	return out, nil
}

type memCache struct {
	mu    sync.Mutex
	snaps map[uuid.UUID]models.BidSnapshot
	gets  int
}

func newMemCache() *memCache {
	return &memCache{snaps: make(map[uuid.UUID]models.BidSnapshot)}
}

func (c *memCache) Get(_ context.Context, productID uuid.UUID) (*models.BidSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	snap, ok := c.snaps[productID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (c *memCache) Advance(_ context.Context, snap models.BidSnapshot) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.snaps[snap.ProductID]; ok && cur.Seq >= snap.Seq {
		return false, nil
	}
	c.snaps[snap.ProductID] = snap
	return true, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	results []*BidResult
}

func (n *recordingNotifier) BidAccepted(_ context.Context, result *BidResult) {
	n.mu.Lock()
	n.results = append(n.results, result)
	n.mu.Unlock()
}
