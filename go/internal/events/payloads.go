package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types written to the outbox and published on auction.events.<type>.
const (
	TypeBidPlaced      = "BidPlaced"
	TypeBidRefunded    = "BidRefunded"
	TypeAuctionSettled = "AuctionSettled"
	TypeAuctionClosed  = "AuctionClosed"
)

// Event payload types shared by producers and the gateway

// BidPlacedPayload is the payload for a BidPlaced event.
// Seq is the product's bid sequence after this bid was accepted.
type BidPlacedPayload struct {
	ProductID   string          `json:"productId"`
	CurrentBid  decimal.Decimal `json:"currentBid"`
	BidderName  string          `json:"bidderName"`
	BidderEmail string          `json:"bidderEmail"`
	Seq         int64           `json:"seq"`
	PreviousBid decimal.Decimal `json:"previousBid"`
	PlacedAt    time.Time       `json:"placedAt"`
}

// BidRefundedPayload is the payload for a BidRefunded event, emitted when
// an outbid bidder's hold is released.
type BidRefundedPayload struct {
	ProductID   string          `json:"productId"`
	BidderEmail string          `json:"bidderEmail"`
	Amount      decimal.Decimal `json:"amount"`
	OutbidBy    string          `json:"outbidBy"`
	Seq         int64           `json:"seq"`
	RefundedAt  time.Time       `json:"refundedAt"`
}

// AuctionSettledPayload is the payload for an AuctionSettled event
type AuctionSettledPayload struct {
	ProductID  string          `json:"productId"`
	OrderID    string          `json:"orderId"`
	WinnerName string          `json:"winnerName"`
	FinalPrice decimal.Decimal `json:"finalPrice"`
	SettledAt  time.Time       `json:"settledAt"`
}

// AuctionClosedPayload is the payload for an AuctionClosed event
type AuctionClosedPayload struct {
	ProductID string    `json:"productId"`
	ClosedAt  time.Time `json:"closedAt"`
}
