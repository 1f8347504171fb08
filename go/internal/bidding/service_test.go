package bidding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/rpcjson"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServicePlaceBidOverConnect(t *testing.T) {
	f := newAppFixture()
	now := f.clock.Now()
	id := f.repo.addProduct(500, now.Add(-time.Minute), now.Add(time.Hour))
	f.repo.wallets["alice@example.com"] = decimal.NewFromInt(1000)

	mux := http.NewServeMux()
	mux.Handle(NewService(f.app).Handler())
	srv := httptest.NewServer(mux)
	defer srv.Close()

	place := connect.NewClient[PlaceBidRequest, PlaceBidResponse](srv.Client(), srv.URL+PlaceBidProcedure, rpcjson.WithCodec())
	getState := connect.NewClient[GetBidStateRequest, GetBidStateResponse](srv.Client(), srv.URL+GetBidStateProcedure, rpcjson.WithCodec())

	ctx := context.Background()
	_, err := place.CallUnary(ctx, connect.NewRequest(&PlaceBidRequest{
		ProductID: id, Amount: decimal.NewFromInt(500), BidderEmail: "alice@example.com", BidderName: "Alice",
	}))
	require.Error(t, err)
	mapped := apperr.FromConnectError(err)
	require.ErrorIs(t, mapped, apperr.ErrBidTooLow)

	resp, err := place.CallUnary(ctx, connect.NewRequest(&PlaceBidRequest{
		ProductID: id, Amount: decimal.NewFromInt(501), BidderEmail: "alice@example.com", BidderName: "Alice",
	}))
	require.NoError(t, err)
	assert.Equal(t, "501", resp.Msg.State.CurrentBid.String())
	assert.Equal(t, "500", resp.Msg.PreviousBid.String())
	assert.Equal(t, int64(1), resp.Msg.State.Seq)

	state, err := getState.CallUnary(ctx, connect.NewRequest(&GetBidStateRequest{ProductID: id}))
	require.NoError(t, err)
	assert.Equal(t, "Alice", state.Msg.State.BidderName)
}
