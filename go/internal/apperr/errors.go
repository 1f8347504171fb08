package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTimeInput    = errors.New("invalid time input")
	ErrBidTooLow           = errors.New("bid too low")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNetworkFailure      = errors.New("network failure")
	ErrSettlementConflict  = errors.New("settlement conflict")

	ErrNotFound         = errors.New("not found")
	ErrAuctionNotActive = errors.New("auction not active")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrStaleEvent       = errors.New("stale event")
)

// BidTooLowError carries the amount a retry has to beat.
type BidTooLowError struct {
	Current decimal.Decimal
	Minimum decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low: current %s, minimum %s", e.Current.String(), e.Minimum.String())
}

func (e *BidTooLowError) Unwrap() error { return ErrBidTooLow }

// NewBidTooLow builds a rejection for a bid that did not beat current.
// The minimum acceptable bid is one smallest currency unit above current.
func NewBidTooLow(current decimal.Decimal) *BidTooLowError {
	return &BidTooLowError{
		Current: current,
		Minimum: current.Add(MinIncrement),
	}
}

// MinIncrement is the smallest step a bid can be raised by.
var MinIncrement = decimal.New(1, -2)

// Kind returns a stable machine readable name for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTimeInput):
		return "invalid_time_input"
	case errors.Is(err, ErrBidTooLow):
		return "bid_too_low"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrSettlementConflict):
		return "settlement_conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuctionNotActive):
		return "auction_not_active"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrStaleEvent):
		return "stale_event"
	case errors.Is(err, ErrNetworkFailure):
		return "network_failure"
	default:
		return "internal"
	}
}

// FromKind maps a name produced by Kind back to its sentinel.
// Unknown names yield nil.
func FromKind(kind string) error {
	switch kind {
	case "invalid_time_input":
		return ErrInvalidTimeInput
	case "bid_too_low":
		return ErrBidTooLow
	case "insufficient_balance":
		return ErrInsufficientBalance
	case "settlement_conflict":
		return ErrSettlementConflict
	case "not_found":
		return ErrNotFound
	case "auction_not_active":
		return ErrAuctionNotActive
	case "invalid_argument":
		return ErrInvalidArgument
	case "stale_event":
		return ErrStaleEvent
	case "network_failure":
		return ErrNetworkFailure
	}
	return nil
}

// HTTPStatus maps err to the REST status code returned to clients.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidTimeInput), errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSettlementConflict), errors.Is(err, ErrAuctionNotActive), errors.Is(err, ErrStaleEvent):
		return http.StatusConflict
	case errors.Is(err, ErrBidTooLow), errors.Is(err, ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNetworkFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ConnectCode maps err to a connect status code.
func ConnectCode(err error) connect.Code {
	switch {
	case errors.Is(err, ErrInvalidTimeInput), errors.Is(err, ErrInvalidArgument):
		return connect.CodeInvalidArgument
	case errors.Is(err, ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, ErrSettlementConflict), errors.Is(err, ErrStaleEvent):
		return connect.CodeAborted
	case errors.Is(err, ErrBidTooLow), errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrAuctionNotActive):
		return connect.CodeFailedPrecondition
	case errors.Is(err, ErrNetworkFailure):
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}
