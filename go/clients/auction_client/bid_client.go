package auction_client

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/bidding"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/rpcjson"
	"github.com/shopspring/decimal"
)

// BidClient calls the bidding RPC service. Errors come back mapped onto
// the apperr sentinels.
type BidClient struct {
	placeBid    *connect.Client[bidding.PlaceBidRequest, bidding.PlaceBidResponse]
	getBidState *connect.Client[bidding.GetBidStateRequest, bidding.GetBidStateResponse]
	listBids    *connect.Client[bidding.ListBidsRequest, bidding.ListBidsResponse]
}

func NewBidClient(httpClient *http.Client, baseURL string) *BidClient {
	return &BidClient{
		placeBid: connect.NewClient[bidding.PlaceBidRequest, bidding.PlaceBidResponse](
			httpClient, baseURL+bidding.PlaceBidProcedure, rpcjson.WithCodec()),
		getBidState: connect.NewClient[bidding.GetBidStateRequest, bidding.GetBidStateResponse](
			httpClient, baseURL+bidding.GetBidStateProcedure, rpcjson.WithCodec()),
		listBids: connect.NewClient[bidding.ListBidsRequest, bidding.ListBidsResponse](
			httpClient, baseURL+bidding.ListBidsProcedure, rpcjson.WithCodec()),
	}
}

func (c *BidClient) PlaceBid(ctx context.Context, productID uuid.UUID, amount decimal.Decimal, email, name string) (*bidding.PlaceBidResponse, error) {
	resp, err := c.placeBid.CallUnary(ctx, connect.NewRequest(&bidding.PlaceBidRequest{
		ProductID:   productID,
		Amount:      amount,
		BidderEmail: email,
		BidderName:  name,
	}))
	if err != nil {
		return nil, apperr.FromConnectError(err)
	}
	return resp.Msg, nil
}

func (c *BidClient) GetBidState(ctx context.Context, productID uuid.UUID) (*models.BidSnapshot, error) {
	resp, err := c.getBidState.CallUnary(ctx, connect.NewRequest(&bidding.GetBidStateRequest{ProductID: productID}))
	if err != nil {
		return nil, apperr.FromConnectError(err)
	}
	return &resp.Msg.State, nil
}

func (c *BidClient) ListBids(ctx context.Context, productID uuid.UUID, limit int32) ([]models.Bid, error) {
	resp, err := c.listBids.CallUnary(ctx, connect.NewRequest(&bidding.ListBidsRequest{ProductID: productID, Limit: limit}))
	if err != nil {
		return nil, apperr.FromConnectError(err)
	}
	return resp.Msg.Bids, nil
}
