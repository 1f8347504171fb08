package product

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/sqlutil"
	"github.com/shopspring/decimal"
)

type Queries struct {
	db sqlutil.DBTX
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Product struct {
	ID                 uuid.UUID
	Title              string
	Description        string
	ImageURL           sql.NullString
	SellerEmail        string
	BiddingStartDate   string
	BiddingStartTime   string
	BiddingEndTime     time.Time
	BiddingStartPrice  decimal.Decimal
	Status             string
	CurrentBidderEmail sql.NullString
	CurrentBidderName  sql.NullString
	BidSeq             int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const productColumns = `id, title, description, image_url, seller_email,
    to_char(bidding_start_date, 'YYYY-MM-DD'), to_char(bidding_start_time, 'HH24:MI:SS'),
    bidding_end_time, bidding_start_price, status, current_bidder_email, current_bidder_name,
    bid_seq, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID, &i.Title, &i.Description, &i.ImageURL, &i.SellerEmail,
		&i.BiddingStartDate, &i.BiddingStartTime,
		&i.BiddingEndTime, &i.BiddingStartPrice, &i.Status, &i.CurrentBidderEmail, &i.CurrentBidderName,
		&i.BidSeq, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

const listProducts = `
SELECT ` + productColumns + `
FROM products
WHERE ($1::text = '' OR status = $1)
ORDER BY bidding_end_time
LIMIT $2
`

func (q *Queries) ListProducts(ctx context.Context, status string, limit int32) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx, listProducts, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		i, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getProduct = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRowContext(ctx, getProduct, id))
}

const getProductForUpdate = `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

func (q *Queries) GetProductForUpdate(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRowContext(ctx, getProductForUpdate, id))
}

const updateProductStatus = `
UPDATE products SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

func (q *Queries) UpdateProductStatus(ctx context.Context, id uuid.UUID, status string) (Product, error) {
	return scanProduct(q.db.QueryRowContext(ctx, updateProductStatus, id, status))
}

const hasOrder = `SELECT EXISTS (SELECT 1 FROM orders WHERE product_id = $1)`

func (q *Queries) HasOrder(ctx context.Context, productID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, hasOrder, productID).Scan(&exists)
	return exists, err
}

const deleteProduct = `DELETE FROM products WHERE id = $1`

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteProduct, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
