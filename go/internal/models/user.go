package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is a buyer or seller with a contact profile and a bidding wallet.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Balance is total funds; Held is the part reserved by leading bids.
	Balance decimal.Decimal `json:"balance"`
	Held    decimal.Decimal `json:"held"`
}

// Available is what the user can still commit to new bids.
func (u *User) Available() decimal.Decimal {
	return u.Balance.Sub(u.Held)
}
