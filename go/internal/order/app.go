package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/validation"
	"github.com/rs/zerolog/log"
)

// OrderRepository defines what the app layer needs from the repository
type OrderRepository interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, bool, error)
	GetOrderByProduct(ctx context.Context, productID uuid.UUID) (*models.Order, error)
	ListOrdersByBuyer(ctx context.Context, email string) ([]*models.Order, error)
}

// App handles order business logic
type App struct {
	repo OrderRepository
}

// NewApp creates a new order App
func NewApp(repo OrderRepository) *App {
	return &App{repo: repo}
}

// CreateOrder records a won auction. Repeating it for the same product
// returns the existing order with created false.
func (a *App) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, bool, error) {
	if err := validation.Struct(req); err != nil {
		return nil, false, fmt.Errorf("validation failed: %w", err)
	}
	o, created, err := a.repo.CreateOrder(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}
	if !created {
		log.Debug().Str("product_id", req.ProductID.String()).Str("order_id", o.ID.String()).Msg("order already recorded")
		return o, false, nil
	}
	log.Info().
		Str("product_id", req.ProductID.String()).
		Str("order_id", o.ID.String()).
		Str("final_price", o.FinalPrice.String()).
		Msg("created order")
	return o, true, nil
}

// GetOrderByProduct returns the order recorded for a product
func (a *App) GetOrderByProduct(ctx context.Context, productID uuid.UUID) (*models.Order, error) {
	o, err := a.repo.GetOrderByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// ListOrdersByBuyer returns the orders won by email
func (a *App) ListOrdersByBuyer(ctx context.Context, email string) ([]*models.Order, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", apperr.ErrInvalidArgument)
	}
	return a.repo.ListOrdersByBuyer(ctx, email)
}
