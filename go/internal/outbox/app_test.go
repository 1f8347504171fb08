package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueRejectsEmptyPayload(t *testing.T) {
	err := Enqueue(context.Background(), nil, uuid.New(), events.TypeAuctionClosed, nil)
	assert.ErrorContains(t, err, "payload cannot be empty")
}

func TestProcessUnsentEventsMarksOnlySuccesses(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	app := NewApp(repo)
	productID := uuid.New()

	seedEvent(t, app, productID, events.TypeBidPlaced, events.BidPlacedPayload{ProductID: productID.String(), Seq: 1})
	seedEvent(t, app, productID, events.TypeAuctionClosed, events.AuctionClosedPayload{ProductID: productID.String()})

	n, err := app.ProcessUnsentEvents(ctx, 10, func(event OutboxEvent) error {
		if event.EventType == events.TypeAuctionClosed {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := app.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestFetchUnsentEventsRequiresPositiveLimit(t *testing.T) {
	_, err := NewApp(newMemRepo()).FetchUnsentEvents(context.Background(), 0)
	assert.Error(t, err)
}
