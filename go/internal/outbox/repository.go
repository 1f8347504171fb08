package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/sqlutil"
)

type Repository struct {
	queries *Queries
}

func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{
		queries: New(db),
	}
}

func (r *Repository) InsertOutboxEvent(ctx context.Context, productID uuid.UUID, eventType string, payload []byte) error {
	err := r.queries.InsertOutboxEvent(ctx, InsertOutboxEventParams{
		ID:        uuid.New(),
		ProductID: productID,
		EventType: eventType,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := r.queries.FetchUnsentOutbox(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}

	events := make([]OutboxEvent, len(rows))
	for i, row := range rows {
		events[i] = toOutboxEvent(row)
	}
	return events, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	if err := r.queries.MarkOutboxSent(ctx, id); err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}

func (r *Repository) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	row, err := r.queries.FetchOutboxByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("outbox event %s not found or already sent: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	event := toOutboxEvent(row)
	return &event, nil
}

func (r *Repository) CountPending(ctx context.Context) (int64, error) {
	count, err := r.queries.CountPendingOutbox(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending outbox events: %w", err)
	}
	return count, nil
}

func toOutboxEvent(row AuctionOutbox) OutboxEvent {
	return OutboxEvent{
		ID:        row.ID,
		ProductID: row.ProductID,
		EventType: row.EventType,
		Payload:   []byte(row.Payload),
		CreatedAt: row.CreatedAt,
		SentAt:    sqlutil.FromSqlTime(row.SentAt),
	}
}

// Enqueue writes an event on db, which is normally the caller's open
// transaction so the event commits or rolls back with the state change.
func Enqueue(ctx context.Context, db sqlutil.DBTX, productID uuid.UUID, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	if err := validateEventPayload(data); err != nil {
		return fmt.Errorf("invalid %s payload: %w", eventType, err)
	}
	return NewRepository(db).InsertOutboxEvent(ctx, productID, eventType, data)
}
