package product

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
)

// Repository implements product data access operations
type Repository struct {
	db      *sql.DB
	queries *Queries
}

// NewRepository creates a new product repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		queries: New(db),
	}
}

// ListProducts returns listings ordered by end time, optionally filtered by status.
func (r *Repository) ListProducts(ctx context.Context, status models.ProductStatus, limit int32) ([]*models.Product, error) {
	rows, err := r.queries.ListProducts(ctx, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	out := make([]*models.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToModel(row))
	}
	return out, nil
}

// GetProduct retrieves one listing
func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row, err := r.queries.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return ToModel(row), nil
}

// SetStatus moves a listing to status under a row lock. check vets the
// transition against the locked row. Closing writes an AuctionClosed event.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus, now time.Time, check func(*models.Product) error) (*models.Product, error) {
	var out *models.Product

	err := sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *Queries) error {
		row, err := q.GetProductForUpdate(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		current := ToModel(row)
		if current.Status == status {
			out = current
			return nil
		}
		if err := check(current); err != nil {
			return err
		}

		updated, err := q.UpdateProductStatus(ctx, id, string(status))
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if status == models.ProductStatusClosed {
			if err := outbox.Enqueue(ctx, q.db, id, events.TypeAuctionClosed, events.AuctionClosedPayload{
				ProductID: id.String(),
				ClosedAt:  now,
			}); err != nil {
				return err
			}
		}
		out = ToModel(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSettled removes a listing whose order has been recorded. A listing
// without an order is refused with ErrSettlementConflict.
func (r *Repository) DeleteSettled(ctx context.Context, id uuid.UUID) error {
	return sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *Queries) error {
		settled, err := q.HasOrder(ctx, id)
		if err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !settled {
			if _, err := q.GetProduct(ctx, id); err != nil {
				return notFound(err, id)
			}
			return fmt.Errorf("product %s has no order: %w", id, apperr.ErrSettlementConflict)
		}
		n, err := q.DeleteProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
		}
		return nil
	})
}

func notFound(err error, id uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return fmt.Errorf("failed to load product %s: %w", id, err)
}

// ToModel converts a database product to domain model
func ToModel(p Product) *models.Product {
	return &models.Product{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		ImageURL:           sqlutil.FromSqlString(p.ImageURL, ""),
		SellerEmail:        p.SellerEmail,
		BiddingStartDate:   p.BiddingStartDate,
		BiddingStartTime:   p.BiddingStartTime,
		BiddingEndTime:     p.BiddingEndTime,
		BiddingStartPrice:  p.BiddingStartPrice,
		Status:             models.ProductStatus(p.Status),
		CurrentBidderEmail: sqlutil.FromSqlString(p.CurrentBidderEmail, ""),
		CurrentBidderName:  sqlutil.FromSqlString(p.CurrentBidderName, ""),
		BidSeq:             p.BidSeq,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}
