package auction_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/bidding"
	"github.com/mcdev12/auctionhouse/go/internal/countdown"
	"github.com/mcdev12/auctionhouse/go/internal/gateway"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProductFetcher loads the listing a Watcher starts from.
type ProductFetcher interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductView, error)
}

// BidSubmitter places bids synchronously. *BidClient implements it.
type BidSubmitter interface {
	PlaceBid(ctx context.Context, productID uuid.UUID, amount decimal.Decimal, email, name string) (*bidding.PlaceBidResponse, error)
}

// WatcherCallbacks are all optional. They run on the watcher's
// goroutines and must not block.
type WatcherCallbacks struct {
	OnBid      func(bidding.State)
	OnTick     func(countdown.Result)
	OnEnded    func()
	OnRefund   func(gateway.BidRefundedData)
	OnTerminal func(gateway.MessageType)
	OnError    func(error)
}

// Watcher follows one product: its bid state, its local countdown and
// the room updates for it.
type Watcher struct {
	productID uuid.UUID
	products  ProductFetcher
	bids      BidSubmitter
	realtime  *RealtimeClient
	holder    *bidding.Holder
	registry  *countdown.Registry
	cb        WatcherCallbacks

	mu       sync.Mutex
	handle   *countdown.Handle
	cancel   context.CancelFunc
	done     chan struct{}
	closed   bool
	terminal gateway.MessageType
}

// NewWatcher builds a watcher. bids may be nil, in which case bids go
// over the socket.
func NewWatcher(productID uuid.UUID, products ProductFetcher, bids BidSubmitter, realtime *RealtimeClient, clock clockwork.Clock, cb WatcherCallbacks) *Watcher {
	return &Watcher{
		productID: productID,
		products:  products,
		bids:      bids,
		realtime:  realtime,
		holder:    bidding.NewHolder(),
		registry:  countdown.NewRegistry(clock),
		cb:        cb,
	}
}

// Start loads the product, starts its clock and joins its room. Anything
// acquired is released again if Start fails.
func (w *Watcher) Start(ctx context.Context) (err error) {
	view, err := w.products.GetProduct(ctx, w.productID)
	if err != nil {
		if errors.Is(err, apperr.ErrNetworkFailure) {
			log.Error().Err(err).Str("product_id", w.productID.String()).Msg("failed to load product")
		}
		return err
	}
	startAt, err := countdown.CombineStart(view.BiddingStartDate, view.BiddingStartTime)
	if err != nil {
		return fmt.Errorf("product %s start: %w", w.productID, err)
	}

	if w.cb.OnBid != nil {
		w.holder.OnChange(w.cb.OnBid)
	}
	w.holder.Reconcile(view.Snapshot(startAt))

	handle, err := w.registry.Start(w.productID.String(), startAt, view.BiddingEndTime, w.onTick, w.onEnded)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	w.mu.Lock()
	w.handle = handle
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	w.realtime.OnMessage(w.handleMessage)
	go func() {
		defer close(done)
		_ = w.realtime.Run(runCtx)
	}()
	if err := w.realtime.Join(w.productID.String()); err != nil {
		w.Close()
		return err
	}
	if outcome := outcomeOf(view.Status); outcome != "" {
		w.finish(outcome)
	}
	return nil
}

// Close leaves the room, stops the clock and the socket. It is safe to
// call more than once and after a failed Start.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	handle, cancel, done := w.handle, w.cancel, w.done
	w.handle = nil
	w.mu.Unlock()

	handle.Release()
	_ = w.realtime.Leave(w.productID.String())
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// State is the current bid state held for the product.
func (w *Watcher) State() bidding.State {
	return w.holder.Current()
}

// MinimumBid is the smallest bid the watcher would submit.
func (w *Watcher) MinimumBid() decimal.Decimal {
	return w.holder.MinimumNext()
}

// Terminal returns productSold or productClosed once the auction is over,
// or the empty string.
func (w *Watcher) Terminal() gateway.MessageType {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.terminal
}

// PlaceBid submits a bid. Amounts not above the held price are rejected
// locally with a BidTooLow error.
func (w *Watcher) PlaceBid(ctx context.Context, amount decimal.Decimal, email, name string) error {
	current := w.holder.Current().Amount
	if !amount.GreaterThan(current) {
		return apperr.NewBidTooLow(current)
	}

	if w.bids == nil {
		return w.realtime.PlaceBid(w.productID.String(), amount, email, name, uuid.NewString())
	}

	resp, err := w.bids.PlaceBid(ctx, w.productID, amount, email, name)
	if err != nil {
		if errors.Is(err, apperr.ErrNetworkFailure) {
			log.Error().Err(err).Str("product_id", w.productID.String()).Msg("bid submission failed")
		}
		return err
	}
	// Optimistic first, then the server's sequenced state.
	_ = w.holder.ApplyLocalBid(amount, name)
	w.holder.Reconcile(resp.State)
	return nil
}

func (w *Watcher) onTick(_ string, res countdown.Result) {
	if w.cb.OnTick != nil {
		w.cb.OnTick(res)
	}
}

func (w *Watcher) onEnded(_ string) {
	w.mu.Lock()
	w.handle = nil
	w.mu.Unlock()
	if w.cb.OnEnded != nil {
		w.cb.OnEnded()
	}
}

func (w *Watcher) handleMessage(msg *gateway.Message) {
	if msg.ProductID != w.productID.String() {
		return
	}

	switch msg.Type {
	case gateway.MessageProductData, gateway.MessageBidAccepted:
		var snap models.BidSnapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			w.fail(fmt.Errorf("decode %s: %w", msg.Type, err))
			return
		}
		w.holder.Reconcile(snap)
		if outcome := outcomeOf(snap.Status); outcome != "" {
			w.finish(outcome)
		}

	case gateway.MessageBidPlaced:
		var data gateway.BidPlacedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			w.fail(fmt.Errorf("decode %s: %w", msg.Type, err))
			return
		}
		err := w.holder.ApplyRemoteBid(bidding.RemoteBid{
			ProductID:  data.ProductID,
			Amount:     data.CurrentBid,
			BidderName: data.BidderName,
			Seq:        data.Seq,
		})
		if errors.Is(err, apperr.ErrStaleEvent) {
			log.Debug().Err(err).Str("product_id", data.ProductID).Msg("dropped stale bid")
		} else if err != nil {
			w.fail(err)
		}

	case gateway.MessageBidRefunded:
		var data gateway.BidRefundedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			w.fail(fmt.Errorf("decode %s: %w", msg.Type, err))
			return
		}
		if w.cb.OnRefund != nil {
			w.cb.OnRefund(data)
		}

	case gateway.MessageBidRejected, gateway.MessageError:
		var data gateway.BidRejectedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			w.fail(fmt.Errorf("decode %s: %w", msg.Type, err))
			return
		}
		if data.MinimumBid != nil {
			w.fail(&apperr.BidTooLowError{Current: data.MinimumBid.Sub(apperr.MinIncrement), Minimum: *data.MinimumBid})
			return
		}
		cause := apperr.FromKind(data.Kind)
		// A join answered with not_found means the listing was settled and
		// removed while we were away.
		if msg.Type == gateway.MessageError && msg.RequestID == "" && errors.Is(cause, apperr.ErrNotFound) {
			w.finish(gateway.MessageProductSold)
			return
		}
		if cause == nil {
			w.fail(fmt.Errorf("%s", data.Error))
			return
		}
		w.fail(fmt.Errorf("%s: %w", data.Error, cause))

	case gateway.MessageProductSold, gateway.MessageProductClosed:
		w.finish(msg.Type)
	}
}

// outcomeOf maps a non-active listing status to its terminal message.
func outcomeOf(status models.ProductStatus) gateway.MessageType {
	switch status {
	case models.ProductStatusSold:
		return gateway.MessageProductSold
	case models.ProductStatusClosed:
		return gateway.MessageProductClosed
	}
	return ""
}

// finish stops the clock once the server has settled the auction.
func (w *Watcher) finish(outcome gateway.MessageType) {
	w.mu.Lock()
	if w.terminal != "" {
		w.mu.Unlock()
		return
	}
	w.terminal = outcome
	handle := w.handle
	w.handle = nil
	w.mu.Unlock()

	handle.Release()
	log.Info().Str("product_id", w.productID.String()).Str("outcome", string(outcome)).Msg("auction no longer available")
	if w.cb.OnTerminal != nil {
		w.cb.OnTerminal(outcome)
	}
}

func (w *Watcher) fail(err error) {
	if w.cb.OnError != nil {
		w.cb.OnError(err)
		return
	}
	log.Warn().Err(err).Str("product_id", w.productID.String()).Msg("watcher error")
}
