package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/order"
	"github.com/mcdev12/auctionhouse/go/internal/outbox"
	"github.com/mcdev12/auctionhouse/go/internal/product"
	"github.com/mcdev12/auctionhouse/go/internal/sqlutil"
	"github.com/mcdev12/auctionhouse/go/internal/users"
	"github.com/shopspring/decimal"
)

// Store is what the Settler needs from persistence.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is one settlement transaction.
type Tx interface {
	// LockProduct returns the listing with its row locked, or ErrNotFound.
	LockProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProfile(ctx context.Context, email string) (*models.User, error)
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*models.Order, bool, error)
	CaptureHold(ctx context.Context, email string, amount decimal.Decimal) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	MarkClosed(ctx context.Context, id uuid.UUID) error
	Enqueue(ctx context.Context, productID uuid.UUID, eventType string, payload interface{}) error
}

// Sweeper finds listings that need settling.
type Sweeper interface {
	NextEnd(ctx context.Context) (*time.Time, error)
	DueProducts(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error)
}

// Repository is the Postgres Store and Sweeper.
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

func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *Queries) error {
		return fn(&pgTx{db: q.db, q: q})
	})
}

func (r *Repository) NextEnd(ctx context.Context) (*time.Time, error) {
	next, err := r.queries.FetchNextEnd(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch next end: %w", err)
	}
	return sqlutil.FromSqlTime(next), nil
}

func (r *Repository) DueProducts(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	ids, err := r.queries.FetchDueProducts(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due products: %w", err)
	}
	return ids, nil
}

type pgTx struct {
	db sqlutil.DBTX
	q  *Queries
}

func (t *pgTx) LockProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row, err := product.New(t.db).GetProductForUpdate(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock product %s: %w", id, err)
	}
	return product.ToModel(row), nil
}

func (t *pgTx) GetProfile(ctx context.Context, email string) (*models.User, error) {
	return users.NewRepository(users.New(t.db)).GetUserByEmail(ctx, email)
}

func (t *pgTx) CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*models.Order, bool, error) {
	return order.Insert(ctx, t.db, req)
}

func (t *pgTx) CaptureHold(ctx context.Context, email string, amount decimal.Decimal) error {
	n, err := t.q.CaptureHold(ctx, email, amount)
	if err != nil {
		return fmt.Errorf("capture hold for %s: %w", email, err)
	}
	if n == 0 {
		return fmt.Errorf("wallet %s: %w", email, apperr.ErrNotFound)
	}
	return nil
}

func (t *pgTx) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := product.New(t.db).DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

func (t *pgTx) MarkClosed(ctx context.Context, id uuid.UUID) error {
	if _, err := product.New(t.db).UpdateProductStatus(ctx, id, string(models.ProductStatusClosed)); err != nil {
		return fmt.Errorf("close product %s: %w", id, err)
	}
	return nil
}

func (t *pgTx) Enqueue(ctx context.Context, productID uuid.UUID, eventType string, payload interface{}) error {
	return outbox.Enqueue(ctx, t.db, productID, eventType, payload)
}
