package product

import (
	"github.com/shopspring/decimal"
)

// TempBidRequest is the listing page's bid submission. The field names are
// the ones existing clients already send.
type TempBidRequest struct {
	TempUserEmail string          `json:"tempuseremail" validate:"required,email"`
	TempAmount    decimal.Decimal `json:"tempamount" validate:"gt=0"`
	TempName      string          `json:"tempname" validate:"required,max=120"`
	// BiddingStartPrice is the legacy mirror of tempamount. When sent it
	// has to agree with it.
	BiddingStartPrice *decimal.Decimal `json:"biddingStartPrice,omitempty"`
}

// StatusRequest is the body of a status patch.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active closed"`
}
