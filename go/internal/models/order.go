package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the immutable record of a won auction. It outlives the product.
type Order struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"productId"`
	ProductTitle string          `json:"productTitle"`
	SellerEmail  string          `json:"sellerEmail"`
	BuyerEmail   string          `json:"buyerEmail"`
	BuyerName    string          `json:"buyerName"`
	BuyerPhone   string          `json:"buyerPhone,omitempty"`
	BuyerAddress string          `json:"buyerAddress,omitempty"`
	FinalPrice   decimal.Decimal `json:"finalPrice"`
	// ProductSnapshot is the listing as it stood when the auction closed.
	ProductSnapshot json.RawMessage `json:"productSnapshot,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}
