package bidding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/events"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/outbox"
	"github.com/mcdev12/auctionhouse/go/internal/sqlutil"
	"github.com/shopspring/decimal"
)

// PlaceBidParams is one bid submission as the repository sees it.
type PlaceBidParams struct {
	ProductID   uuid.UUID
	Amount      decimal.Decimal
	BidderEmail string
	BidderName  string
	Now         time.Time
}

// BidResult describes an accepted bid and whom it displaced.
type BidResult struct {
	Bid                 models.Bid
	PreviousAmount      decimal.Decimal
	PreviousBidderEmail string
	PreviousBidderName  string
	StartAt             time.Time
	EndAt               time.Time
}

// Snapshot is the product's bid state right after this bid.
func (r *BidResult) Snapshot() models.BidSnapshot {
	return models.BidSnapshot{
		ProductID:   r.Bid.ProductID,
		CurrentBid:  r.Bid.Amount,
		BidderName:  r.Bid.BidderName,
		BidderEmail: r.Bid.BidderEmail,
		Seq:         r.Bid.Seq,
		Status:      models.ProductStatusActive,
		StartAt:     r.StartAt,
		EndAt:       r.EndAt,
	}
}

type Repository struct {
	db      *sql.DB
	queries *Queries
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		queries: New(db),
	}
}

// PlaceBid accepts a bid atomically. In one transaction it raises the
// price, releases the displaced bidder's hold, holds the new bidder's
// funds, appends to the ledger and writes the outbox events.
func (r *Repository) PlaceBid(ctx context.Context, arg PlaceBidParams) (*BidResult, error) {
	var result *BidResult

	err := sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *Queries) error {
		row, err := q.AcceptBid(ctx, AcceptBidParams{
			ProductID:   arg.ProductID,
			Amount:      arg.Amount,
			BidderEmail: arg.BidderEmail,
			BidderName:  arg.BidderName,
			Now:         arg.Now,
		})
		if errors.Is(err, sql.ErrNoRows) {
			return classifyRejection(ctx, q, arg)
		}
		if err != nil {
			return fmt.Errorf("accept bid: %w", err)
		}

		prevEmail := sqlutil.FromSqlString(row.PreviousEmail, "")
		if prevEmail != "" {
			if err := q.ReleaseHold(ctx, prevEmail, row.PreviousAmount); err != nil {
				return fmt.Errorf("release hold for %s: %w", prevEmail, err)
			}
		}

		if _, err := q.PlaceHold(ctx, arg.BidderEmail, arg.Amount); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return holdRejection(ctx, q, arg.BidderEmail, arg.Amount)
			}
			return fmt.Errorf("place hold for %s: %w", arg.BidderEmail, err)
		}

		bid := models.Bid{
			ID:          uuid.New(),
			ProductID:   arg.ProductID,
			BidderEmail: arg.BidderEmail,
			BidderName:  arg.BidderName,
			Amount:      arg.Amount,
			Seq:         row.BidSeq,
			PlacedAt:    arg.Now,
		}
		if err := q.InsertBid(ctx, InsertBidParams{
			ID:          bid.ID,
			ProductID:   bid.ProductID,
			BidderEmail: bid.BidderEmail,
			BidderName:  bid.BidderName,
			Amount:      bid.Amount,
			Seq:         bid.Seq,
			PlacedAt:    bid.PlacedAt,
		}); err != nil {
			return fmt.Errorf("insert bid: %w", err)
		}

		if err := outbox.Enqueue(ctx, q.db, arg.ProductID, events.TypeBidPlaced, events.BidPlacedPayload{
			ProductID:   arg.ProductID.String(),
			CurrentBid:  bid.Amount,
			BidderName:  bid.BidderName,
			BidderEmail: bid.BidderEmail,
			Seq:         bid.Seq,
			PreviousBid: row.PreviousAmount,
			PlacedAt:    bid.PlacedAt,
		}); err != nil {
			return err
		}
		if prevEmail != "" {
			if err := outbox.Enqueue(ctx, q.db, arg.ProductID, events.TypeBidRefunded, events.BidRefundedPayload{
				ProductID:   arg.ProductID.String(),
				BidderEmail: prevEmail,
				Amount:      row.PreviousAmount,
				OutbidBy:    bid.BidderName,
				Seq:         bid.Seq,
				RefundedAt:  arg.Now,
			}); err != nil {
				return err
			}
		}

		result = &BidResult{
			Bid:                 bid,
			PreviousAmount:      row.PreviousAmount,
			PreviousBidderEmail: prevEmail,
			PreviousBidderName:  sqlutil.FromSqlString(row.PreviousName, ""),
			StartAt:             row.StartAt,
			EndAt:               row.EndAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// classifyRejection explains why the compare-and-set matched no row.
func classifyRejection(ctx context.Context, q *Queries, arg PlaceBidParams) error {
	state, err := q.GetBidState(ctx, arg.ProductID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %s: %w", arg.ProductID, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get bid state: %w", err)
	}
	if models.ProductStatus(state.Status) != models.ProductStatusActive ||
		arg.Now.Before(state.StartAt) || !arg.Now.Before(state.EndAt) {
		return fmt.Errorf("product %s is %s: %w", arg.ProductID, state.Status, apperr.ErrAuctionNotActive)
	}
	return apperr.NewBidTooLow(state.Amount)
}

func holdRejection(ctx context.Context, q *Queries, email string, amount decimal.Decimal) error {
	exists, err := q.UserExists(ctx, email)
	if err != nil {
		return fmt.Errorf("look up bidder %s: %w", email, err)
	}
	if !exists {
		return fmt.Errorf("bidder %s: %w", email, apperr.ErrNotFound)
	}
	return fmt.Errorf("bidder %s cannot cover %s: %w", email, amount, apperr.ErrInsufficientBalance)
}

// GetBidState reads the authoritative bid state of a product.
func (r *Repository) GetBidState(ctx context.Context, productID uuid.UUID) (*models.BidSnapshot, error) {
	row, err := r.queries.GetBidState(ctx, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bid state: %w", err)
	}
	return &models.BidSnapshot{
		ProductID:   row.ProductID,
		CurrentBid:  row.Amount,
		BidderName:  sqlutil.FromSqlString(row.BidderName, ""),
		BidderEmail: sqlutil.FromSqlString(row.BidderEmail, ""),
		Seq:         row.BidSeq,
		Status:      models.ProductStatus(row.Status),
		StartAt:     row.StartAt,
		EndAt:       row.EndAt,
	}, nil
}

// ListBids returns the newest bids first.
func (r *Repository) ListBids(ctx context.Context, productID uuid.UUID, limit int32) ([]models.Bid, error) {
	rows, err := r.queries.ListBids(ctx, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	bids := make([]models.Bid, len(rows))
	for i, row := range rows {
		bids[i] = models.Bid{
			ID:          row.ID,
			ProductID:   row.ProductID,
			BidderEmail: row.BidderEmail,
			BidderName:  row.BidderName,
			Amount:      row.Amount,
			Seq:         row.Seq,
			PlacedAt:    row.PlacedAt,
		}
	}
	return bids, nil
}
