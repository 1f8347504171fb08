package bidding

import (
	"fmt"
	"sync"

	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/shopspring/decimal"
)

// State is what a Holder currently believes about one product.
type State struct {
	ProductID  string
	Amount     decimal.Decimal
	BidderName string
	Seq        int64
}

// RemoteBid is an inbound bid update for a product. Seq zero means the
// sender did not sequence the event.
type RemoteBid struct {
	ProductID  string
	Amount     decimal.Decimal
	BidderName string
	Seq        int64
}

// Holder keeps the client-side bid state for one product. The amount never
// decreases, whatever order updates arrive in.
type Holder struct {
	mu       sync.Mutex
	state    State
	ready    bool
	onChange func(State)
}

func NewHolder() *Holder {
	return &Holder{}
}

// OnChange registers fn to run after every accepted update.
func (h *Holder) OnChange(fn func(State)) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

// Initialize seeds the holder with the product's starting amount.
func (h *Holder) Initialize(productID string, startingAmount decimal.Decimal) {
	h.update(func(s *State) bool {
		*s = State{ProductID: productID, Amount: startingAmount}
		h.ready = true
		return true
	})
}

// Reconcile adopts a server snapshot unless it is older than what is held.
// The bidder name moves only with the amount it belongs to.
func (h *Holder) Reconcile(snap models.BidSnapshot) {
	h.update(func(s *State) bool {
		if h.ready && snap.Seq < s.Seq {
			return false
		}
		if !h.ready {
			s.ProductID = snap.ProductID.String()
			h.ready = true
			s.Amount = snap.CurrentBid
			s.BidderName = snap.BidderName
		} else if snap.CurrentBid.GreaterThanOrEqual(s.Amount) {
			s.Amount = snap.CurrentBid
			s.BidderName = snap.BidderName
		}
		s.Seq = snap.Seq
		return true
	})
}

// ApplyLocalBid records a bid this client just had accepted. The amount
// must beat the current one.
func (h *Holder) ApplyLocalBid(amount decimal.Decimal, bidderName string) error {
	var rejected error
	h.update(func(s *State) bool {
		if !amount.GreaterThan(s.Amount) {
			rejected = apperr.NewBidTooLow(s.Amount)
			return false
		}
		s.Amount = amount
		s.BidderName = bidderName
		return true
	})
	return rejected
}

// ApplyRemoteBid applies a broadcast bid for the held product. Events whose
// sequence is not newer than the last applied one return ErrStaleEvent.
func (h *Holder) ApplyRemoteBid(ev RemoteBid) error {
	var rejected error
	h.update(func(s *State) bool {
		if ev.ProductID != s.ProductID {
			rejected = fmt.Errorf("bid for %s applied to holder of %s: %w", ev.ProductID, s.ProductID, apperr.ErrInvalidArgument)
			return false
		}
		if ev.Seq > 0 {
			if ev.Seq <= s.Seq {
				rejected = fmt.Errorf("seq %d not newer than %d: %w", ev.Seq, s.Seq, apperr.ErrStaleEvent)
				return false
			}
			s.Seq = ev.Seq
		} else if !ev.Amount.GreaterThan(s.Amount) {
			rejected = fmt.Errorf("unsequenced bid %s not above %s: %w", ev.Amount, s.Amount, apperr.ErrStaleEvent)
			return false
		}
		if ev.Amount.GreaterThanOrEqual(s.Amount) {
			s.Amount = ev.Amount
			s.BidderName = ev.BidderName
		}
		return true
	})
	return rejected
}

// Current returns a copy of the held state.
func (h *Holder) Current() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// MinimumNext is the smallest amount ApplyLocalBid would accept.
func (h *Holder) MinimumNext() decimal.Decimal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Amount.Add(apperr.MinIncrement)
}

func (h *Holder) update(fn func(s *State) bool) {
	h.mu.Lock()
	changed := fn(&h.state)
	snapshot := h.state
	cb := h.onChange
	h.mu.Unlock()

	if changed && cb != nil {
		cb(snapshot)
	}
}
