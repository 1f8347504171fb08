package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// NotifyChannel is the Postgres channel the outbox trigger notifies on.
const NotifyChannel = "auction_outbox_events"

type Queries struct {
	db sqlutil.DBTX
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type AuctionOutbox struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    sql.NullTime
}

type InsertOutboxEventParams struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	EventType string
	Payload   json.RawMessage
}

const insertOutboxEvent = `
INSERT INTO auction_outbox (id, product_id, event_type, payload)
VALUES ($1, $2, $3, $4)
`

func (q *Queries) InsertOutboxEvent(ctx context.Context, arg InsertOutboxEventParams) error {
	_, err := q.db.ExecContext(ctx, insertOutboxEvent, arg.ID, arg.ProductID, arg.EventType, pqtype.NullRawMessage{RawMessage: arg.Payload, Valid: true})
	return err
}

const fetchUnsentOutbox = `
SELECT id, product_id, event_type, payload, created_at, sent_at
FROM auction_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1
`

func (q *Queries) FetchUnsentOutbox(ctx context.Context, limit int32) ([]AuctionOutbox, error) {
	rows, err := q.db.QueryContext(ctx, fetchUnsentOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuctionOutbox
	for rows.Next() {
		var i AuctionOutbox
		if err := rows.Scan(&i.ID, &i.ProductID, &i.EventType, &i.Payload, &i.CreatedAt, &i.SentAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const fetchOutboxByID = `
SELECT id, product_id, event_type, payload, created_at, sent_at
FROM auction_outbox
WHERE id = $1 AND sent_at IS NULL
`

func (q *Queries) FetchOutboxByID(ctx context.Context, id uuid.UUID) (AuctionOutbox, error) {
	row := q.db.QueryRowContext(ctx, fetchOutboxByID, id)
	var i AuctionOutbox
	err := row.Scan(&i.ID, &i.ProductID, &i.EventType, &i.Payload, &i.CreatedAt, &i.SentAt)
	return i, err
}

const markOutboxSent = `
UPDATE auction_outbox SET sent_at = now() WHERE id = $1
`

func (q *Queries) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markOutboxSent, id)
	return err
}

const countPendingOutbox = `
SELECT COUNT(*) FROM auction_outbox WHERE sent_at IS NULL
`

func (q *Queries) CountPendingOutbox(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPendingOutbox)
	var count int64
	err := row.Scan(&count)
	return count, err
}
