package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is one row of the auction outbox.
type OutboxEvent struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
	SentAt    *time.Time
}

type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}
