package bidding

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

// productStartAt is the absolute start instant of a listing.
const productStartAt = `((bidding_start_date + bidding_start_time) AT TIME ZONE 'UTC')`

type AcceptBidParams struct {
	ProductID   uuid.UUID
	Amount      decimal.Decimal
	BidderEmail string
	BidderName  string
	Now         time.Time
}

type AcceptBidRow struct {
	BidSeq         int64
	PreviousAmount decimal.Decimal
	PreviousEmail  sql.NullString
	PreviousName   sql.NullString
	StartAt        time.Time
	EndAt          time.Time
}

const acceptBid = `
UPDATE products p
SET bidding_start_price = $2,
    current_bidder_email = $3,
    current_bidder_name = $4,
    bid_seq = p.bid_seq + 1,
    updated_at = now()
FROM (
    SELECT id, bidding_start_price, current_bidder_email, current_bidder_name
    FROM products
    WHERE id = $1
    FOR UPDATE
) old
WHERE p.id = old.id
  AND p.status = 'active'
  AND $2 > p.bidding_start_price
  AND ((p.bidding_start_date + p.bidding_start_time) AT TIME ZONE 'UTC') <= $5
  AND $5 < p.bidding_end_time
RETURNING p.bid_seq, old.bidding_start_price, old.current_bidder_email, old.current_bidder_name,
    ((p.bidding_start_date + p.bidding_start_time) AT TIME ZONE 'UTC'), p.bidding_end_time
`

// AcceptBid raises the product's price only if amount beats it while the
// auction is open. sql.ErrNoRows means the bid was not accepted.
func (q *Queries) AcceptBid(ctx context.Context, arg AcceptBidParams) (AcceptBidRow, error) {
	row := q.db.QueryRowContext(ctx, acceptBid, arg.ProductID, arg.Amount, arg.BidderEmail, arg.BidderName, arg.Now)
	var i AcceptBidRow
	err := row.Scan(&i.BidSeq, &i.PreviousAmount, &i.PreviousEmail, &i.PreviousName, &i.StartAt, &i.EndAt)
	return i, err
}

type BidStateRow struct {
	ProductID   uuid.UUID
	Status      string
	Amount      decimal.Decimal
	BidderEmail sql.NullString
	BidderName  sql.NullString
	BidSeq      int64
	StartAt     time.Time
	EndAt       time.Time
}

const getBidState = `
SELECT id, status, bidding_start_price, current_bidder_email, current_bidder_name, bid_seq,
    ` + productStartAt + `, bidding_end_time
FROM products
WHERE id = $1
`

func (q *Queries) GetBidState(ctx context.Context, productID uuid.UUID) (BidStateRow, error) {
	row := q.db.QueryRowContext(ctx, getBidState, productID)
	var i BidStateRow
	err := row.Scan(&i.ProductID, &i.Status, &i.Amount, &i.BidderEmail, &i.BidderName, &i.BidSeq, &i.StartAt, &i.EndAt)
	return i, err
}

const releaseHold = `
UPDATE users SET held = GREATEST(held - $2, 0) WHERE email = $1
`

func (q *Queries) ReleaseHold(ctx context.Context, email string, amount decimal.Decimal) error {
	_, err := q.db.ExecContext(ctx, releaseHold, email, amount)
	return err
}

const placeHold = `
UPDATE users SET held = held + $2
WHERE email = $1 AND balance - held >= $2
RETURNING balance - held
`

// PlaceHold reserves amount of the user's available funds and returns what
// remains available. sql.ErrNoRows means the user is unknown or short.
func (q *Queries) PlaceHold(ctx context.Context, email string, amount decimal.Decimal) (decimal.Decimal, error) {
	row := q.db.QueryRowContext(ctx, placeHold, email, amount)
	var available decimal.Decimal
	err := row.Scan(&available)
	return available, err
}

const userExists = `
SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)
`

func (q *Queries) UserExists(ctx context.Context, email string) (bool, error) {
	row := q.db.QueryRowContext(ctx, userExists, email)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

type InsertBidParams struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	BidderEmail string
	BidderName  string
	Amount      decimal.Decimal
	Seq         int64
	PlacedAt    time.Time
}

const insertBid = `
INSERT INTO bids (id, product_id, bidder_email, bidder_name, amount, seq, placed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (q *Queries) InsertBid(ctx context.Context, arg InsertBidParams) error {
	_, err := q.db.ExecContext(ctx, insertBid, arg.ID, arg.ProductID, arg.BidderEmail, arg.BidderName, arg.Amount, arg.Seq, arg.PlacedAt)
	return err
}

const listBids = `
SELECT id, product_id, bidder_email, bidder_name, amount, seq, placed_at
FROM bids
WHERE product_id = $1
ORDER BY seq DESC
LIMIT $2
`

type BidRow struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	BidderEmail string
	BidderName  string
	Amount      decimal.Decimal
	Seq         int64
	PlacedAt    time.Time
}

func (q *Queries) ListBids(ctx context.Context, productID uuid.UUID, limit int32) ([]BidRow, error) {
	rows, err := q.db.QueryContext(ctx, listBids, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BidRow
	for rows.Next() {
		var i BidRow
		if err := rows.Scan(&i.ID, &i.ProductID, &i.BidderEmail, &i.BidderName, &i.Amount, &i.Seq, &i.PlacedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
