// Package settlement turns ended auctions into orders or closed listings.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/events"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/order"
	"github.com/rs/zerolog/log"
)

// Outcome is what one Settle call did.
type Outcome string

const (
	OutcomeSold    Outcome = "sold"
	OutcomeClosed  Outcome = "closed"
	OutcomeNotDue  Outcome = "not_due"
	OutcomeSettled Outcome = "already_settled"
)

// Result reports one settlement.
type Result struct {
	ProductID uuid.UUID
	Outcome   Outcome
	Order     *models.Order
}

// Invalidator drops cached bid state for a product and refuses cache
// fills at or below seq.
type Invalidator interface {
	Invalidate(ctx context.Context, productID uuid.UUID, seq int64) error
}

// Settler settles one product per call, inside a single transaction.
type Settler struct {
	store Store
	clock clockwork.Clock
	cache Invalidator
}

// NewSettler creates a Settler. cache may be nil.
func NewSettler(store Store, clock clockwork.Clock, cache Invalidator) *Settler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Settler{store: store, clock: clock, cache: cache}
}

// Settle settles productID if its auction has ended. A product that is
// gone or no longer active was settled before; that is a no-op, not an error.
func (s *Settler) Settle(ctx context.Context, productID uuid.UUID) (*Result, error) {
	res := &Result{ProductID: productID}
	var fence int64

	err := s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.LockProduct(ctx, productID)
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("product %s already removed: %w", productID, apperr.ErrSettlementConflict)
		}
		if err != nil {
			return err
		}
		fence = p.BidSeq
		if p.Status != models.ProductStatusActive {
			return fmt.Errorf("product %s is %s: %w", productID, p.Status, apperr.ErrSettlementConflict)
		}

		now := s.clock.Now()
		if now.Before(p.BiddingEndTime) {
			res.Outcome = OutcomeNotDue
			return nil
		}

		if !p.HasWinner() {
			if err := tx.MarkClosed(ctx, productID); err != nil {
				return err
			}
			res.Outcome = OutcomeClosed
			return tx.Enqueue(ctx, productID, events.TypeAuctionClosed, events.AuctionClosedPayload{
				ProductID: productID.String(),
				ClosedAt:  now,
			})
		}

		o, err := s.sell(ctx, tx, p)
		if err != nil {
			return err
		}
		res.Outcome = OutcomeSold
		res.Order = o
		return tx.Enqueue(ctx, productID, events.TypeAuctionSettled, events.AuctionSettledPayload{
			ProductID:  productID.String(),
			OrderID:    o.ID.String(),
			WinnerName: p.CurrentBidderName,
			FinalPrice: p.BiddingStartPrice,
			SettledAt:  now,
		})
	})

	if errors.Is(err, apperr.ErrSettlementConflict) {
		log.Debug().Err(err).Str("product_id", productID.String()).Msg("settlement no-op")
		return &Result{ProductID: productID, Outcome: OutcomeSettled}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settle %s: %w", productID, err)
	}

	if res.Outcome != OutcomeNotDue {
		s.invalidate(ctx, productID, fence)
		ev := log.Info().Str("product_id", productID.String()).Str("outcome", string(res.Outcome))
		if res.Order != nil {
			ev = ev.Str("order_id", res.Order.ID.String()).Str("final_price", res.Order.FinalPrice.String())
		}
		ev.Msg("auction settled")
	}
	return res, nil
}

// sell records the order, charges the winner and removes the listing.
func (s *Settler) sell(ctx context.Context, tx Tx, p *models.Product) (*models.Order, error) {
	req := order.CreateOrderRequest{
		ProductID:    p.ID,
		ProductTitle: p.Title,
		SellerEmail:  p.SellerEmail,
		BuyerEmail:   p.CurrentBidderEmail,
		BuyerName:    p.CurrentBidderName,
		FinalPrice:   p.BiddingStartPrice,
	}

	profile, err := tx.GetProfile(ctx, p.CurrentBidderEmail)
	switch {
	case err == nil:
		req.BuyerPhone = profile.Phone
		req.BuyerAddress = profile.Address
	case errors.Is(err, apperr.ErrNotFound):
		log.Warn().Str("product_id", p.ID.String()).Str("winner", p.CurrentBidderEmail).Msg("winner has no profile; order has no contact details")
		profile = nil
	default:
		return nil, fmt.Errorf("winner profile: %w", err)
	}

	snapshot, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("snapshot product: %w", err)
	}
	req.ProductSnapshot = snapshot

	o, created, err := tx.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if !created {
		log.Debug().Str("product_id", p.ID.String()).Str("order_id", o.ID.String()).Msg("order recorded before settlement")
	}

	if profile != nil {
		if err := tx.CaptureHold(ctx, p.CurrentBidderEmail, p.BiddingStartPrice); err != nil {
			return nil, err
		}
	}
	if err := tx.DeleteProduct(ctx, p.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Settler) invalidate(ctx context.Context, productID uuid.UUID, seq int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, productID, seq); err != nil {
		log.Warn().Err(err).Str("product_id", productID.String()).Msg("bid cache invalidate failed")
	}
}
