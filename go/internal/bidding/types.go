package bidding

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlaceBidRequest is a bid submission from any surface: REST, RPC or
// a WebSocket room.
type PlaceBidRequest struct {
	ProductID   uuid.UUID       `json:"productId" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	BidderEmail string          `json:"bidderEmail" validate:"required,email"`
	BidderName  string          `json:"bidderName" validate:"required,max=120"`
}
