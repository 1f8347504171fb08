package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus is the listing lifecycle state. Sold listings are removed
// rather than stored, so StatusSold only appears in events and outcomes.
type ProductStatus string

const (
	ProductStatusActive ProductStatus = "active"
	ProductStatusClosed ProductStatus = "closed"
	ProductStatusSold   ProductStatus = "sold"
)

// Product is an auction listing.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	SellerEmail string    `json:"sellerEmail"`

	// BiddingStartDate carries the date part and BiddingStartTime the time of
	// day; together they form the UTC start instant.
	BiddingStartDate  string          `json:"biddingStartDate"`
	BiddingStartTime  string          `json:"biddingStartTime"`
	BiddingEndTime    time.Time       `json:"biddingEndTime"`
	BiddingStartPrice decimal.Decimal `json:"biddingStartPrice"`

	Status             ProductStatus `json:"status"`
	CurrentBidderEmail string        `json:"currentBidderEmail,omitempty"`
	CurrentBidderName  string        `json:"currentBidderName,omitempty"`
	BidSeq             int64         `json:"bidSeq"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasWinner reports whether a bidder currently holds the top bid.
func (p *Product) HasWinner() bool {
	return p.CurrentBidderEmail != ""
}

// BidSnapshot is the live bidding state of one product as broadcast to rooms.
type BidSnapshot struct {
	ProductID   uuid.UUID       `json:"productId"`
	CurrentBid  decimal.Decimal `json:"currentBid"`
	BidderName  string          `json:"bidderName"`
	BidderEmail string          `json:"-"`
	Seq         int64           `json:"seq"`
	Status      ProductStatus   `json:"status"`
	StartAt     time.Time       `json:"startAt"`
	EndAt       time.Time       `json:"endAt"`
}

// Snapshot derives the live bidding state from a listing.
func (p *Product) Snapshot(startAt time.Time) BidSnapshot {
	return BidSnapshot{
		ProductID:   p.ID,
		CurrentBid:  p.BiddingStartPrice,
		BidderName:  p.CurrentBidderName,
		BidderEmail: p.CurrentBidderEmail,
		Seq:         p.BidSeq,
		Status:      p.Status,
		StartAt:     startAt,
		EndAt:       p.BiddingEndTime,
	}
}
