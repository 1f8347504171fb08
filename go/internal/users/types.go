package users

import "github.com/shopspring/decimal"

// CreateUserRequest represents the data needed to create a new user
type CreateUserRequest struct {
	Username string          `json:"username" validate:"required"`
	Email    string          `json:"email" validate:"required,email"`
	Phone    string          `json:"phone"`
	Address  string          `json:"address"`
	Balance  decimal.Decimal `json:"balance" validate:"gte=0"`
}

// UpdateProfileRequest represents the contact fields a user can change
type UpdateProfileRequest struct {
	Username string `json:"username" validate:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// DepositRequest adds funds to a wallet
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}
