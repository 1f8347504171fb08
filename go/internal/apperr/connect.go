package apperr

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
)

const (
	// KindHeader carries Kind(err) on connect errors and REST responses.
	KindHeader = "Auction-Error"
	// MinimumBidHeader carries the minimum acceptable bid on BidTooLow.
	MinimumBidHeader = "Auction-Minimum-Bid"
)

// ToConnectError wraps err with its connect code and kind metadata.
func ToConnectError(err error) *connect.Error {
	cerr := connect.NewError(ConnectCode(err), err)
	cerr.Meta().Set(KindHeader, Kind(err))
	var tooLow *BidTooLowError
	if errors.As(err, &tooLow) {
		cerr.Meta().Set(MinimumBidHeader, tooLow.Minimum.String())
	}
	return cerr
}

// FromConnectError maps a connect error received by a client back onto
// the taxonomy. Transport failures become ErrNetworkFailure.
func FromConnectError(err error) error {
	if err == nil {
		return nil
	}
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return fmt.Errorf("%v: %w", err, ErrNetworkFailure)
	}
	kind := cerr.Meta().Get(KindHeader)
	if kind == "bid_too_low" {
		if min, perr := decimal.NewFromString(cerr.Meta().Get(MinimumBidHeader)); perr == nil {
			return &BidTooLowError{Current: min.Sub(MinIncrement), Minimum: min}
		}
	}
	if sentinel := FromKind(kind); sentinel != nil {
		return fmt.Errorf("%s: %w", cerr.Message(), sentinel)
	}
	switch cerr.Code() {
	case connect.CodeUnavailable, connect.CodeDeadlineExceeded, connect.CodeUnknown:
		return fmt.Errorf("%s: %w", cerr.Message(), ErrNetworkFailure)
	case connect.CodeNotFound:
		return fmt.Errorf("%s: %w", cerr.Message(), ErrNotFound)
	}
	return err
}
