package order

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest records the outcome of a won auction.
type CreateOrderRequest struct {
	ProductID       uuid.UUID       `json:"productId" validate:"required"`
	ProductTitle    string          `json:"productTitle" validate:"required"`
	SellerEmail     string          `json:"sellerEmail" validate:"required,email"`
	BuyerEmail      string          `json:"buyerEmail" validate:"required,email"`
	BuyerName       string          `json:"buyerName" validate:"required"`
	BuyerPhone      string          `json:"buyerPhone"`
	BuyerAddress    string          `json:"buyerAddress"`
	FinalPrice      decimal.Decimal `json:"finalPrice" validate:"gt=0"`
	ProductSnapshot json.RawMessage `json:"productSnapshot,omitempty"`
}
