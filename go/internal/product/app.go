package product

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/bidding"
	"github.com/mcdev12/auctionhouse/go/internal/countdown"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/validation"
	"github.com/rs/zerolog/log"
)

// ProductRepository defines what the app layer needs from the repository
type ProductRepository interface {
	ListProducts(ctx context.Context, status models.ProductStatus, limit int32) ([]*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus, now time.Time, check func(*models.Product) error) (*models.Product, error)
	DeleteSettled(ctx context.Context, id uuid.UUID) error
}

// BidPlacer accepts bids on behalf of the listing endpoints.
type BidPlacer interface {
	PlaceBid(ctx context.Context, req bidding.PlaceBidRequest) (*bidding.BidResult, error)
}

// Invalidator drops cached bid state for a product and refuses cache
// fills at or below seq.
type Invalidator interface {
	Invalidate(ctx context.Context, productID uuid.UUID, seq int64) error
}

// View is a listing plus its clock as of the time it was read.
type View struct {
	*models.Product
	Clock countdown.Result `json:"clock"`
}

// App handles product business logic
type App struct {
	repo  ProductRepository
	bids  BidPlacer
	cache Invalidator
	clock clockwork.Clock
}

// NewApp creates a new product App. cache may be nil.
func NewApp(repo ProductRepository, bids BidPlacer, cache Invalidator, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:  repo,
		bids:  bids,
		cache: cache,
		clock: clock,
	}
}

// ListProducts returns listings with their clocks. An empty status lists all.
func (a *App) ListProducts(ctx context.Context, status models.ProductStatus, limit int32) ([]View, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	products, err := a.repo.ListProducts(ctx, status, limit)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()
	views := make([]View, 0, len(products))
	for _, p := range products {
		views = append(views, a.view(p, now))
	}
	return views, nil
}

// GetProduct returns one listing with its clock
func (a *App) GetProduct(ctx context.Context, id uuid.UUID) (*View, error) {
	p, err := a.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	v := a.view(p, a.clock.Now())
	return &v, nil
}

func (a *App) view(p *models.Product, now time.Time) View {
	res, err := countdown.Evaluate(now, p.BiddingStartDate, p.BiddingStartTime, p.BiddingEndTime.UTC().Format(time.RFC3339Nano))
	if err != nil {
		log.Warn().Err(err).Str("product_id", p.ID.String()).Msg("listing has an invalid bidding window")
	}
	return View{Product: p, Clock: res}
}

// PlaceTempBid submits a bid made from the listing page.
func (a *App) PlaceTempBid(ctx context.Context, id uuid.UUID, req TempBidRequest) (*bidding.BidResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.BiddingStartPrice != nil && !req.BiddingStartPrice.Equal(req.TempAmount) {
		return nil, fmt.Errorf("biddingStartPrice %s does not match tempamount %s: %w",
			req.BiddingStartPrice.String(), req.TempAmount.String(), apperr.ErrInvalidArgument)
	}

	return a.bids.PlaceBid(ctx, bidding.PlaceBidRequest{
		ProductID:   id,
		Amount:      req.TempAmount,
		BidderEmail: req.TempUserEmail,
		BidderName:  req.TempName,
	})
}

// UpdateStatus moves a listing between active and closed.
func (a *App) UpdateStatus(ctx context.Context, id uuid.UUID, req StatusRequest) (*models.Product, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	now := a.clock.Now()
	to := models.ProductStatus(req.Status)

	p, err := a.repo.SetStatus(ctx, id, to, now, func(current *models.Product) error {
		return checkTransition(current, to, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	a.invalidate(ctx, id, p.BidSeq)

	log.Info().Str("product_id", id.String()).Str("status", string(p.Status)).Msg("product status updated")
	return p, nil
}

// checkTransition refuses reopening a listing whose window has passed and
// closing a listing somebody has bid on. The latter is settled instead.
func checkTransition(current *models.Product, to models.ProductStatus, now time.Time) error {
	switch to {
	case models.ProductStatusActive:
		if !now.Before(current.BiddingEndTime) {
			return fmt.Errorf("product %s ended at %s: %w", current.ID, current.BiddingEndTime.Format(time.RFC3339), apperr.ErrSettlementConflict)
		}
	case models.ProductStatusClosed:
		if current.HasWinner() {
			return fmt.Errorf("product %s has a winning bid: %w", current.ID, apperr.ErrSettlementConflict)
		}
	default:
		return fmt.Errorf("status %q: %w", to, apperr.ErrInvalidArgument)
	}
	return nil
}

// DeleteSettled removes a sold listing once its order exists.
func (a *App) DeleteSettled(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.DeleteSettled(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	a.invalidate(ctx, id, math.MaxInt64)
	log.Info().Str("product_id", id.String()).Msg("deleted settled product")
	return nil
}

func (a *App) invalidate(ctx context.Context, id uuid.UUID, seq int64) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(ctx, id, seq); err != nil {
		log.Warn().Err(err).Str("product_id", id.String()).Msg("bid cache invalidate failed")
	}
}
