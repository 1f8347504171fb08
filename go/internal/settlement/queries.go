package settlement

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

const fetchNextEnd = `
SELECT min(bidding_end_time)
FROM products
WHERE status = 'active'
`

// FetchNextEnd returns the earliest end among active listings, invalid
// when there are none.
func (q *Queries) FetchNextEnd(ctx context.Context) (sql.NullTime, error) {
	var next sql.NullTime
	err := q.db.QueryRowContext(ctx, fetchNextEnd).Scan(&next)
	return next, err
}

const fetchDueProducts = `
SELECT id
FROM products
WHERE status = 'active' AND bidding_end_time <= $1
ORDER BY bidding_end_time
LIMIT $2
`

func (q *Queries) FetchDueProducts(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	rows, err := q.db.QueryContext(ctx, fetchDueProducts, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// captureHold turns the winner's hold into a charge.
const captureHold = `
UPDATE users
SET balance = balance - $2,
    held = GREATEST(held - $2, 0)
WHERE email = $1
`

func (q *Queries) CaptureHold(ctx context.Context, email string, amount decimal.Decimal) (int64, error) {
	res, err := q.db.ExecContext(ctx, captureHold, email, amount)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
