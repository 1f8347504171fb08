package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu     sync.Mutex
	events []OutboxEvent
	sent   map[uuid.UUID]bool
}

func newMemRepo() *memRepo {
	return &memRepo{sent: make(map[uuid.UUID]bool)}
}

func seedEvent(t *testing.T, app *App, productID uuid.UUID, eventType string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, app.repo.InsertOutboxEvent(context.Background(), productID, eventType, data))
}

func (r *memRepo) InsertOutboxEvent(_ context.Context, productID uuid.UUID, eventType string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, OutboxEvent{ID: uuid.New(), ProductID: productID, EventType: eventType, Payload: payload})
	return nil
}

func (r *memRepo) FetchUnsentOutbox(_ context.Context, limit int32) ([]OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []OutboxEvent
	for _, e := range r.events {
		if !r.sent[e.ID] && int32(len(out)) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) MarkOutboxSent(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[id] = true
	return nil
}

func (r *memRepo) FetchOutboxByID(_ context.Context, id uuid.UUID) (*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id && !r.sent[id] {
			ev := e
			return &ev, nil
		}
	}
	return nil, fmt.Errorf("outbox event %s: %w", id, apperr.ErrNotFound)
}

func (r *memRepo) CountPending(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.events {
		if !r.sent[e.ID] {
			n++
		}
	}
	return n, nil
}

// flakyPublisher fails the first failures calls, or every call for event
// types listed in always.
type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	always    map[string]bool
	calls     int
	published []OutboxEvent
}

func (p *flakyPublisher) Publish(_ context.Context, event OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.always[event.EventType] {
		return errors.New("nats unavailable")
	}
	if p.failures > 0 {
		p.failures--
		return errors.New("nats unavailable")
	}
	p.published = append(p.published, event)
	return nil
}
