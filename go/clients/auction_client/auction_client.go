// Package auction_client talks to the auction server over REST, the
// bidding RPC service and the room socket.
package auction_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/clients"
	"github.com/mcdev12/auctionhouse/go/internal/countdown"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/shopspring/decimal"
)

type AuctionClient struct {
	*clients.BaseClient
}

func NewAuctionClient(baseURL string) *AuctionClient {
	client := &AuctionClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
	client.SetHeader("Accept", "application/json")
	return client
}

// ProductView is a listing with the clock the server computed for it.
type ProductView struct {
	models.Product
	Clock countdown.Result `json:"clock"`
}

// TempBid is the body of PATCH tempdata.
type TempBid struct {
	TempUserEmail     string           `json:"tempuseremail"`
	TempAmount        decimal.Decimal  `json:"tempamount"`
	TempName          string           `json:"tempname"`
	BiddingStartPrice *decimal.Decimal `json:"biddingStartPrice,omitempty"`
}

// TempBidResult is the accepted bid and the product state after it.
type TempBidResult struct {
	Bid   models.Bid         `json:"bid"`
	State models.BidSnapshot `json:"state"`
}

// OrderRequest is the body of POST /api/orders/.
type OrderRequest struct {
	ProductID       uuid.UUID       `json:"productId"`
	ProductTitle    string          `json:"productTitle"`
	SellerEmail     string          `json:"sellerEmail"`
	BuyerEmail      string          `json:"buyerEmail"`
	BuyerName       string          `json:"buyerName"`
	BuyerPhone      string          `json:"buyerPhone,omitempty"`
	BuyerAddress    string          `json:"buyerAddress,omitempty"`
	FinalPrice      decimal.Decimal `json:"finalPrice"`
	ProductSnapshot json.RawMessage `json:"productSnapshot,omitempty"`
}

func decodeInto(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func encode(v any) (*bytes.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// ListProducts lists listings, optionally filtered by status.
func (c *AuctionClient) ListProducts(ctx context.Context, status models.ProductStatus, limit int) ([]ProductView, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	endpoint := ProductsEndpoint
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	var resp struct {
		Products []ProductView `json:"products"`
	}
	if err := decodeInto(body, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *AuctionClient) GetProduct(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	body, err := c.Get(ctx, fmt.Sprintf(ProductEndpoint, id))
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	var resp struct {
		Product ProductView `json:"product"`
	}
	if err := decodeInto(body, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// PlaceTempBid submits a bid through the REST form of PlaceBid.
func (c *AuctionClient) PlaceTempBid(ctx context.Context, id uuid.UUID, bid TempBid) (*TempBidResult, error) {
	reader, err := encode(bid)
	if err != nil {
		return nil, err
	}
	body, err := c.Patch(ctx, fmt.Sprintf(TempBidEndpoint, id), reader)
	if err != nil {
		return nil, fmt.Errorf("place bid on %s: %w", id, err)
	}
	var resp TempBidResult
	if err := decodeInto(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *AuctionClient) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) (*models.Product, error) {
	reader, err := encode(map[string]string{"status": string(status)})
	if err != nil {
		return nil, err
	}
	body, err := c.Patch(ctx, fmt.Sprintf(StatusEndpoint, id), reader)
	if err != nil {
		return nil, fmt.Errorf("update status of %s: %w", id, err)
	}
	var resp struct {
		Product models.Product `json:"product"`
	}
	if err := decodeInto(body, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

func (c *AuctionClient) DeleteSettled(ctx context.Context, id uuid.UUID) error {
	if _, err := c.Delete(ctx, fmt.Sprintf(DeleteSettledEndpoint, id)); err != nil {
		return fmt.Errorf("delete settled product %s: %w", id, err)
	}
	return nil
}

// CreateOrder creates the order for a won auction. created is false when
// the product already had one.
func (c *AuctionClient) CreateOrder(ctx context.Context, req OrderRequest) (*models.Order, bool, error) {
	reader, err := encode(req)
	if err != nil {
		return nil, false, err
	}
	body, err := c.Post(ctx, OrdersEndpoint, reader)
	if err != nil {
		return nil, false, fmt.Errorf("create order for %s: %w", req.ProductID, err)
	}
	var resp struct {
		Order   models.Order `json:"order"`
		Created bool         `json:"created"`
	}
	if err := decodeInto(body, &resp); err != nil {
		return nil, false, err
	}
	return &resp.Order, resp.Created, nil
}

func (c *AuctionClient) GetOrderByProduct(ctx context.Context, productID uuid.UUID) (*models.Order, error) {
	body, err := c.Get(ctx, fmt.Sprintf(OrderByProductEndpoint, productID))
	if err != nil {
		return nil, fmt.Errorf("get order for %s: %w", productID, err)
	}
	var resp struct {
		Order models.Order `json:"order"`
	}
	if err := decodeInto(body, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

func (c *AuctionClient) ListOrdersByBuyer(ctx context.Context, email string) ([]models.Order, error) {
	body, err := c.Get(ctx, fmt.Sprintf(OrdersByBuyerEndpoint, url.PathEscape(email)))
	if err != nil {
		return nil, fmt.Errorf("list orders of %s: %w", email, err)
	}
	var resp struct {
		Orders []models.Order `json:"orders"`
	}
	if err := decodeInto(body, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// GetUser fetches a contact profile by email.
func (c *AuctionClient) GetUser(ctx context.Context, email string) (*models.User, error) {
	body, err := c.Get(ctx, fmt.Sprintf(UserByEmailEndpoint, url.PathEscape(email)))
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", email, err)
	}
	var resp struct {
		User models.User `json:"user"`
	}
	if err := decodeInto(body, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}
