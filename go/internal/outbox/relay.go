package outbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type RelayConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	BatchSize  int32
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		MaxRetries: 5,
		RetryDelay: 200 * time.Millisecond,
		BatchSize:  100,
	}
}

// Relay moves outbox rows to the publisher and marks them sent.
type Relay struct {
	app       *App
	publisher EventPublisher
	metrics   MetricsCollector
	clock     clockwork.Clock
	cfg       RelayConfig

	processed atomic.Uint64
	mu        sync.Mutex
	lastEvent time.Time
}

func NewRelay(app *App, publisher EventPublisher, metrics MetricsCollector, clock clockwork.Clock, cfg RelayConfig) *Relay {
	if metrics == nil {
		metrics = &NoOpMetricsCollector{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		app:       app,
		publisher: NewMetricPublisher(publisher, metrics),
		metrics:   metrics,
		clock:     clock,
		cfg:       cfg,
	}
}

// PublishByID publishes the single unsent event named by a notification.
func (r *Relay) PublishByID(ctx context.Context, id uuid.UUID) error {
	event, err := r.app.GetEventByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.publishWithRetry(ctx, *event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := r.app.MarkEventSent(ctx, id); err != nil {
		return err
	}
	r.recordSent()
	log.Info().Str("event_id", id.String()).Str("event_type", event.EventType).Msg("published and marked event as sent")
	return nil
}

// PublishPending drains one batch of unsent events.
func (r *Relay) PublishPending(ctx context.Context) (int, error) {
	start := r.clock.Now()
	n, err := r.app.ProcessUnsentEvents(ctx, r.cfg.BatchSize, func(event OutboxEvent) error {
		return r.publishWithRetry(ctx, event)
	})
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		r.recordSent()
	}
	r.metrics.RecordBatchProcessed(n, r.clock.Since(start))
	if pending, err := r.app.PendingCount(ctx); err == nil {
		r.metrics.RecordOutboxLag(int(pending))
	}
	return n, nil
}

// Stats reports events published so far and when the last one went out.
func (r *Relay) Stats() (uint64, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed.Load(), r.lastEvent
}

func (r *Relay) recordSent() {
	r.processed.Add(1)
	r.mu.Lock()
	r.lastEvent = r.clock.Now()
	r.mu.Unlock()
}

// publishWithRetry attempts to publish an event with a linearly growing
// delay between attempts.
func (r *Relay) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(delay):
			}
		}

		err := r.publisher.Publish(ctx, event)
		r.metrics.RecordPublishAttempt(event.EventType, attempt+1, err == nil)
		if err != nil {
			lastErr = err
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}
