package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is one accepted bid in the append-only ledger.
type Bid struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	BidderEmail string          `json:"bidderEmail"`
	BidderName  string          `json:"bidderName"`
	Amount      decimal.Decimal `json:"amount"`
	Seq         int64           `json:"seq"`
	PlacedAt    time.Time       `json:"placedAt"`
}
