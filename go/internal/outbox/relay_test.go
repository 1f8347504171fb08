package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRelayConfig() RelayConfig {
	return RelayConfig{MaxRetries: 3, RetryDelay: time.Millisecond, BatchSize: 10}
}

func TestRelayRetriesThenMarksSent(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	app := NewApp(repo)
	productID := uuid.New()
	seedEvent(t, app, productID, events.TypeBidPlaced, events.BidPlacedPayload{ProductID: productID.String(), Seq: 1})

	pub := &flakyPublisher{failures: 2}
	metrics := NewCounterMetrics()
	relay := NewRelay(app, pub, metrics, clockwork.NewRealClock(), testRelayConfig())

	n, err := relay.PublishPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, pub.calls)

	processed, last := relay.Stats()
	assert.Equal(t, uint64(1), processed)
	assert.False(t, last.IsZero())

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.Published[events.TypeBidPlaced])
	assert.Equal(t, uint64(2), snap.Failed[events.TypeBidPlaced])
	assert.Equal(t, 0, snap.Lag)
}

func TestRelayLeavesEventUnsentWhenRetriesExhausted(t *testing.T) {
	ctx := context.Background()
	app := NewApp(newMemRepo())
	productID := uuid.New()
	seedEvent(t, app, productID, events.TypeAuctionClosed, events.AuctionClosedPayload{ProductID: productID.String()})

	pub := &flakyPublisher{always: map[string]bool{events.TypeAuctionClosed: true}}
	relay := NewRelay(app, pub, nil, nil, testRelayConfig())

	n, err := relay.PublishPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 4, pub.calls)

	pending, err := app.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestRelayPublishByID(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	app := NewApp(repo)
	productID := uuid.New()
	seedEvent(t, app, productID, events.TypeBidPlaced, events.BidPlacedPayload{ProductID: productID.String()})
	id := repo.events[0].ID

	pub := &flakyPublisher{}
	relay := NewRelay(app, pub, nil, nil, testRelayConfig())

	require.NoError(t, relay.PublishByID(ctx, id))
	require.Len(t, pub.published, 1)
	assert.Equal(t, productID, pub.published[0].ProductID)

	// a second notification for the same row finds nothing unsent
	err := relay.PublishByID(ctx, id)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Len(t, pub.published, 1)
}

func TestRelayStopsRetryingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	app := NewApp(newMemRepo())
	pub := &flakyPublisher{always: map[string]bool{events.TypeBidPlaced: true}}
	relay := NewRelay(app, pub, nil, clockwork.NewFakeClock(), RelayConfig{MaxRetries: 5, RetryDelay: time.Hour, BatchSize: 1})

	cancel()
	err := relay.publishWithRetry(ctx, OutboxEvent{ID: uuid.New(), EventType: events.TypeBidPlaced})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, pub.calls)
}

func TestMarshalEnvelope(t *testing.T) {
	event := OutboxEvent{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		EventType: events.TypeAuctionClosed,
		Payload:   []byte(`{"productId":"x"}`),
		CreatedAt: time.Date(2025, 6, 30, 17, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
	}
	data, err := marshalEnvelope(event)
	require.NoError(t, err)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, event.ID.String(), env.EventID)
	assert.Equal(t, event.ProductID.String(), env.ProductID)
	assert.JSONEq(t, `{"productId":"x"}`, string(env.Payload))
	assert.True(t, env.Timestamp.Equal(time.Date(2025, 6, 30, 15, 0, 0, 0, time.UTC)), env.Timestamp.String())
	assert.Equal(t, time.UTC, env.Timestamp.Location())
}

type envelopeSink struct {
	got []events.Envelope
}

func (s *envelopeSink) HandleEvent(env *events.Envelope) error {
	s.got = append(s.got, *env)
	return nil
}

func TestLocalPublisherDeliversInProcess(t *testing.T) {
	ctx := context.Background()
	app := NewApp(newMemRepo())
	productID := uuid.New()
	seedEvent(t, app, productID, events.TypeAuctionSettled, events.AuctionSettledPayload{
		ProductID:  productID.String(),
		WinnerName: "Ann",
	})

	sink := &envelopeSink{}
	relay := NewRelay(app, NewLocalPublisher(sink), nil, nil, testRelayConfig())
	n, err := relay.PublishPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, sink.got, 1)
	assert.Equal(t, events.TypeAuctionSettled, sink.got[0].EventType)
	assert.Equal(t, productID.String(), sink.got[0].ProductID)
	payload, err := sink.got[0].DecodePayload()
	require.NoError(t, err)
	settled, ok := payload.(*events.AuctionSettledPayload)
	require.True(t, ok)
	assert.Equal(t, "Ann", settled.WinnerName)

	pending, err := app.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}
