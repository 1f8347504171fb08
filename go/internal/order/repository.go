package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/sqlutil"
)

// Repository implements order data access operations
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new order repository
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

// CreateOrder inserts the order for a product, or returns the one already
// recorded. created reports which happened.
func (r *Repository) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, bool, error) {
	return Insert(ctx, r.db, req)
}

// GetOrderByProduct retrieves the order for a product
func (r *Repository) GetOrderByProduct(ctx context.Context, productID uuid.UUID) (*models.Order, error) {
	row, err := New(r.db).GetOrderByProduct(ctx, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order for product %s: %w", productID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return dbOrderToModel(row), nil
}

// ListOrdersByBuyer returns a buyer's orders, newest first
func (r *Repository) ListOrdersByBuyer(ctx context.Context, email string) ([]*models.Order, error) {
	rows, err := New(r.db).ListOrdersByBuyer(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	out := make([]*models.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, dbOrderToModel(row))
	}
	return out, nil
}

// Insert writes an order through db, which may be a transaction. A product
// has at most one order; a second insert returns the first with created false.
func Insert(ctx context.Context, db sqlutil.DBTX, req CreateOrderRequest) (*models.Order, bool, error) {
	q := New(db)
	row, err := q.InsertOrder(ctx, InsertOrderParams{
		ProductID:       req.ProductID,
		ProductTitle:    req.ProductTitle,
		SellerEmail:     req.SellerEmail,
		BuyerEmail:      req.BuyerEmail,
		BuyerName:       req.BuyerName,
		BuyerPhone:      sqlutil.ToSqlString(req.BuyerPhone),
		BuyerAddress:    sqlutil.ToSqlString(req.BuyerAddress),
		FinalPrice:      req.FinalPrice,
		ProductSnapshot: sqlutil.ToNullRawMessage(req.ProductSnapshot),
	})
	if err == nil {
		return dbOrderToModel(row), true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert order: %w", err)
	}

	existing, err := q.GetOrderByProduct(ctx, req.ProductID)
	if err != nil {
		return nil, false, fmt.Errorf("load existing order: %w", err)
	}
	return dbOrderToModel(existing), false, nil
}

// dbOrderToModel converts a database order to domain model
func dbOrderToModel(o Order) *models.Order {
	return &models.Order{
		ID:              o.ID,
		ProductID:       o.ProductID,
		ProductTitle:    o.ProductTitle,
		SellerEmail:     o.SellerEmail,
		BuyerEmail:      o.BuyerEmail,
		BuyerName:       o.BuyerName,
		BuyerPhone:      sqlutil.FromSqlString(o.BuyerPhone, ""),
		BuyerAddress:    sqlutil.FromSqlString(o.BuyerAddress, ""),
		FinalPrice:      o.FinalPrice,
		ProductSnapshot: sqlutil.FromNullRawMessage(o.ProductSnapshot),
		CreatedAt:       o.CreatedAt,
	}
}
