package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// OutboxRepository defines what the app layer needs from the repository
type OutboxRepository interface {
	InsertOutboxEvent(ctx context.Context, productID uuid.UUID, eventType string, payload []byte) error
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error)
	CountPending(ctx context.Context) (int64, error)
}

// App handles outbox business logic
type App struct {
	repo OutboxRepository
}

// NewApp creates a new outbox App
func NewApp(repo OutboxRepository) *App {
	return &App{
		repo: repo,
	}
}

// FetchUnsentEvents fetches unsent outbox events
func (a *App) FetchUnsentEvents(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	events, err := a.repo.FetchUnsentOutbox(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent events: %w", err)
	}

	if len(events) > 0 {
		log.Debug().
			Int("count", len(events)).
			Msg("fetched unsent outbox events")
	}

	return events, nil
}

// MarkEventSent marks an outbox event as sent
func (a *App) MarkEventSent(ctx context.Context, eventID uuid.UUID) error {
	if err := a.repo.MarkOutboxSent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}

	log.Debug().
		Str("event_id", eventID.String()).
		Msg("marked outbox event as sent")

	return nil
}

// GetEventByID fetches an unsent outbox event by ID
func (a *App) GetEventByID(ctx context.Context, eventID uuid.UUID) (*OutboxEvent, error) {
	event, err := a.repo.FetchOutboxByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event by ID: %w", err)
	}
	return event, nil
}

// PendingCount returns how many events still wait to be published.
func (a *App) PendingCount(ctx context.Context) (int64, error) {
	return a.repo.CountPending(ctx)
}

// ProcessUnsentEvents runs processor over one batch of unsent events and
// marks each success as sent. It returns how many were processed.
func (a *App) ProcessUnsentEvents(ctx context.Context, batchSize int32, processor func(event OutboxEvent) error) (int, error) {
	events, err := a.FetchUnsentEvents(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch unsent events: %w", err)
	}

	processedCount := 0
	errorCount := 0

	for _, event := range events {
		if err := processor(event); err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Msg("failed to process event")
			errorCount++
			continue
		}

		if err := a.MarkEventSent(ctx, event.ID); err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Msg("failed to mark event as sent after processing")
			errorCount++
			continue
		}

		processedCount++
	}

	if processedCount > 0 || errorCount > 0 {
		log.Info().
			Int("processed", processedCount).
			Int("errors", errorCount).
			Int("total", len(events)).
			Msg("processed unsent events batch")
	}

	return processedCount, nil
}

func validateEventPayload(payload []byte) error {
	if len(payload) == 0 || string(payload) == "null" {
		return fmt.Errorf("event payload cannot be empty")
	}
	return nil
}
