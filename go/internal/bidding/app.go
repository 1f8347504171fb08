package bidding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/validation"
	"github.com/rs/zerolog/log"
)

// BidRepository defines what the bidding app layer needs from the repository
type BidRepository interface {
	PlaceBid(ctx context.Context, arg PlaceBidParams) (*BidResult, error)
	GetBidState(ctx context.Context, productID uuid.UUID) (*models.BidSnapshot, error)
	ListBids(ctx context.Context, productID uuid.UUID, limit int32) ([]models.Bid, error)
}

// SnapshotCache is a read-through store of the latest bid state.
type SnapshotCache interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.BidSnapshot, error)
	Advance(ctx context.Context, snap models.BidSnapshot) (bool, error)
}

// Notifier hears about accepted bids in-process.
type Notifier interface {
	BidAccepted(ctx context.Context, result *BidResult)
}

// App handles bidding business logic
type App struct {
	repo     BidRepository
	cache    SnapshotCache
	clock    clockwork.Clock
	notifier Notifier
}

// NewApp creates a new bidding App. cache may be nil.
func NewApp(repo BidRepository, cache SnapshotCache, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:  repo,
		cache: cache,
		clock: clock,
	}
}

// SetNotifier wires an in-process listener for accepted bids.
func (a *App) SetNotifier(n Notifier) {
	a.notifier = n
}

// PlaceBid validates and submits a bid. Rejections wrap ErrBidTooLow,
// ErrInsufficientBalance, ErrAuctionNotActive or ErrNotFound.
func (a *App) PlaceBid(ctx context.Context, req PlaceBidRequest) (*BidResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	result, err := a.repo.PlaceBid(ctx, PlaceBidParams{
		ProductID:   req.ProductID,
		Amount:      req.Amount,
		BidderEmail: req.BidderEmail,
		BidderName:  req.BidderName,
		Now:         a.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place bid: %w", err)
	}

	log.Info().
		Str("product_id", req.ProductID.String()).
		Str("amount", req.Amount.String()).
		Int64("seq", result.Bid.Seq).
		Msg("bid accepted")

	a.advanceCache(ctx, result.Snapshot())
	if a.notifier != nil {
		a.notifier.BidAccepted(ctx, result)
	}
	return result, nil
}

// GetBidState returns the latest bid state, from cache when possible.
func (a *App) GetBidState(ctx context.Context, productID uuid.UUID) (*models.BidSnapshot, error) {
	if a.cache != nil {
		snap, err := a.cache.Get(ctx, productID)
		if err != nil {
			log.Warn().Err(err).Str("product_id", productID.String()).Msg("bid cache read failed")
		} else if snap != nil {
			return snap, nil
		}
	}

	snap, err := a.repo.GetBidState(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bid state: %w", err)
	}
	a.advanceCache(ctx, *snap)
	return snap, nil
}

// ListBids returns up to limit of the newest accepted bids.
func (a *App) ListBids(ctx context.Context, productID uuid.UUID, limit int32) ([]models.Bid, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	bids, err := a.repo.ListBids(ctx, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return bids, nil
}

func (a *App) advanceCache(ctx context.Context, snap models.BidSnapshot) {
	if a.cache == nil {
		return
	}
	if _, err := a.cache.Advance(ctx, snap); err != nil {
		log.Warn().Err(err).Str("product_id", snap.ProductID.String()).Msg("bid cache write failed")
	}
}
