package bidding

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/rpcjson"
	"github.com/shopspring/decimal"
)

const (
	BiddingServiceName = "auction.v1.BiddingService"

	PlaceBidProcedure    = "/auction.v1.BiddingService/PlaceBid"
	GetBidStateProcedure = "/auction.v1.BiddingService/GetBidState"
	ListBidsProcedure    = "/auction.v1.BiddingService/ListBids"
)

type PlaceBidResponse struct {
	Bid         models.Bid         `json:"bid"`
	State       models.BidSnapshot `json:"state"`
	PreviousBid decimal.Decimal    `json:"previousBid"`
}

type GetBidStateRequest struct {
	ProductID uuid.UUID `json:"productId"`
}

type GetBidStateResponse struct {
	State models.BidSnapshot `json:"state"`
}

type ListBidsRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Limit     int32     `json:"limit"`
}

type ListBidsResponse struct {
	Bids []models.Bid `json:"bids"`
}

// BiddingApp defines what the service layer needs from the bidding application
type BiddingApp interface {
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*BidResult, error)
	GetBidState(ctx context.Context, productID uuid.UUID) (*models.BidSnapshot, error)
	ListBids(ctx context.Context, productID uuid.UUID, limit int32) ([]models.Bid, error)
}

// Service implements the BiddingService RPCs
type Service struct {
	app BiddingApp
}

// NewService creates a new bidding RPC service
func NewService(app BiddingApp) *Service {
	return &Service{app: app}
}

// Handler returns the path prefix and handler serving every procedure.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpcjson.WithCodec()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(PlaceBidProcedure, connect.NewUnaryHandler(PlaceBidProcedure, s.PlaceBid, opts...))
	mux.Handle(GetBidStateProcedure, connect.NewUnaryHandler(GetBidStateProcedure, s.GetBidState, opts...))
	mux.Handle(ListBidsProcedure, connect.NewUnaryHandler(ListBidsProcedure, s.ListBids, opts...))
	return "/" + BiddingServiceName + "/", mux
}

// PlaceBid submits a bid
func (s *Service) PlaceBid(ctx context.Context, req *connect.Request[PlaceBidRequest]) (*connect.Response[PlaceBidResponse], error) {
	result, err := s.app.PlaceBid(ctx, *req.Msg)
	if err != nil {
		return nil, apperr.ToConnectError(err)
	}
	return connect.NewResponse(&PlaceBidResponse{
		Bid:         result.Bid,
		State:       result.Snapshot(),
		PreviousBid: result.PreviousAmount,
	}), nil
}

// GetBidState returns a product's current bid state
func (s *Service) GetBidState(ctx context.Context, req *connect.Request[GetBidStateRequest]) (*connect.Response[GetBidStateResponse], error) {
	snap, err := s.app.GetBidState(ctx, req.Msg.ProductID)
	if err != nil {
		return nil, apperr.ToConnectError(err)
	}
	return connect.NewResponse(&GetBidStateResponse{State: *snap}), nil
}

// ListBids returns the newest bids of a product
func (s *Service) ListBids(ctx context.Context, req *connect.Request[ListBidsRequest]) (*connect.Response[ListBidsResponse], error) {
	bids, err := s.app.ListBids(ctx, req.Msg.ProductID, req.Msg.Limit)
	if err != nil {
		return nil, apperr.ToConnectError(err)
	}
	return connect.NewResponse(&ListBidsResponse{Bids: bids}), nil
}
