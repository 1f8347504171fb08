package validation

import (
	"testing"

	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bidForm struct {
	Email  string          `json:"email" validate:"required,email"`
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Status string          `json:"status,omitempty" validate:"omitempty,oneof=active closed"`
}

func TestStructAcceptsValid(t *testing.T) {
	err := Struct(bidForm{Email: "a@b.io", Amount: decimal.NewFromInt(501)})
	assert.NoError(t, err)
}

func TestStructFoldsFieldErrors(t *testing.T) {
	err := Struct(bidForm{Email: "nope", Amount: decimal.Zero, Status: "sold"})
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "amount must be greater than 0")
	assert.Contains(t, err.Error(), "status must be one of [active closed]")
}

func TestStructFractionalAmount(t *testing.T) {
	err := Struct(bidForm{Email: "a@b.io", Amount: decimal.RequireFromString("0.01")})
	assert.NoError(t, err)
}
