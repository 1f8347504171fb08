package order

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/sqlutil"
	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"
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

type Order struct {
	ID              uuid.UUID
	ProductID       uuid.UUID
	ProductTitle    string
	SellerEmail     string
	BuyerEmail      string
	BuyerName       string
	BuyerPhone      sql.NullString
	BuyerAddress    sql.NullString
	FinalPrice      decimal.Decimal
	ProductSnapshot pqtype.NullRawMessage
	CreatedAt       time.Time
}

const orderColumns = `id, product_id, product_title, seller_email, buyer_email, buyer_name,
    buyer_phone, buyer_address, final_price, product_snapshot, created_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID, &i.ProductID, &i.ProductTitle, &i.SellerEmail, &i.BuyerEmail, &i.BuyerName,
		&i.BuyerPhone, &i.BuyerAddress, &i.FinalPrice, &i.ProductSnapshot, &i.CreatedAt,
	)
	return i, err
}

type InsertOrderParams struct {
	ProductID       uuid.UUID
	ProductTitle    string
	SellerEmail     string
	BuyerEmail      string
	BuyerName       string
	BuyerPhone      sql.NullString
	BuyerAddress    sql.NullString
	FinalPrice      decimal.Decimal
	ProductSnapshot pqtype.NullRawMessage
}

// insertOrder yields no row when the product already has an order.
const insertOrder = `
INSERT INTO orders (id, product_id, product_title, seller_email, buyer_email, buyer_name,
                    buyer_phone, buyer_address, final_price, product_snapshot)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (product_id) DO NOTHING
RETURNING ` + orderColumns

func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRowContext(ctx, insertOrder,
		arg.ProductID,
		arg.ProductTitle,
		arg.SellerEmail,
		arg.BuyerEmail,
		arg.BuyerName,
		arg.BuyerPhone,
		arg.BuyerAddress,
		arg.FinalPrice,
		arg.ProductSnapshot,
	))
}

const getOrderByProduct = `SELECT ` + orderColumns + ` FROM orders WHERE product_id = $1`

func (q *Queries) GetOrderByProduct(ctx context.Context, productID uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRowContext(ctx, getOrderByProduct, productID))
}

const listOrdersByBuyer = `
SELECT ` + orderColumns + `
FROM orders
WHERE buyer_email = $1
ORDER BY created_at DESC
`

func (q *Queries) ListOrdersByBuyer(ctx context.Context, email string) ([]Order, error) {
	rows, err := q.db.QueryContext(ctx, listOrdersByBuyer, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
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
