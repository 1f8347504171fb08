// Package gateway pushes live auction state to WebSocket rooms keyed by
// product id.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/bidding"
	"github.com/mcdev12/auctionhouse/go/internal/countdown"
	"github.com/mcdev12/auctionhouse/go/internal/events"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
)

// StateProvider loads the bid state a joining client starts from.
type StateProvider interface {
	GetBidState(ctx context.Context, productID uuid.UUID) (*models.BidSnapshot, error)
}

// BidPlacer accepts bids sent over a socket.
type BidPlacer interface {
	PlaceBid(ctx context.Context, req bidding.PlaceBidRequest) (*bidding.BidResult, error)
}

// Waker is nudged when a room clock sees an auction end.
type Waker interface {
	Wake()
}

// Gateway owns the rooms, their clocks and the translation of domain
// events into room messages.
type Gateway struct {
	manager  *ConnectionManager
	state    StateProvider
	bids     BidPlacer
	registry *countdown.Registry
	waker    Waker

	commandTimeout time.Duration

	mu      sync.Mutex
	handles map[uuid.UUID]*countdown.Handle
}

// NewGateway wires a gateway onto cm. bids and waker may be nil.
func NewGateway(cm *ConnectionManager, state StateProvider, bids BidPlacer, clock clockwork.Clock, waker Waker) *Gateway {
	g := &Gateway{
		manager:        cm,
		state:          state,
		bids:           bids,
		registry:       countdown.NewRegistry(clock),
		waker:          waker,
		commandTimeout: 10 * time.Second,
		handles:        make(map[uuid.UUID]*countdown.Handle),
	}
	cm.onMessage = g.handleClientMessage
	cm.onDisconnect = g.disconnect
	return g
}

// Manager returns the connection manager the gateway drives.
func (g *Gateway) Manager() *ConnectionManager {
	return g.manager
}

// ActiveClocks returns how many rooms have a ticking clock.
func (g *Gateway) ActiveClocks() int {
	return g.registry.Len()
}

// Stop halts every room clock.
func (g *Gateway) Stop() {
	g.mu.Lock()
	g.handles = make(map[uuid.UUID]*countdown.Handle)
	g.mu.Unlock()
	g.registry.StopAll()
}

func (g *Gateway) handleClientMessage(c *Connection, msg ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), g.commandTimeout)
	defer cancel()

	productID, err := uuid.Parse(msg.ProductID)
	if err != nil {
		g.sendError(c, uuid.Nil, msg.RequestID, fmt.Errorf("productId %q: %w", msg.ProductID, apperr.ErrInvalidArgument))
		return
	}

	switch msg.Type {
	case ClientJoinProductRoom:
		g.Join(ctx, c, productID)
	case ClientLeaveProductRoom:
		g.Leave(c, productID)
	case ClientPlaceBid:
		g.placeBid(ctx, c, productID, msg)
	default:
		g.sendError(c, productID, msg.RequestID, fmt.Errorf("unknown message type %q: %w", msg.Type, apperr.ErrInvalidArgument))
	}
}

// Join puts c in the product's room and sends it the current state. The
// first member starts the room clock.
func (g *Gateway) Join(ctx context.Context, c *Connection, productID uuid.UUID) {
	snap, err := g.state.GetBidState(ctx, productID)
	if err != nil {
		g.sendError(c, productID, "", err)
		return
	}

	g.mu.Lock()
	first := g.manager.Join(c, productID)
	if first {
		g.startClock(productID, snap)
	}
	g.mu.Unlock()

	if msg, err := newMessage(MessageProductData, productID, snap); err == nil {
		c.SendMessage(msg)
	}
}

// startClock runs with g.mu held.
func (g *Gateway) startClock(productID uuid.UUID, snap *models.BidSnapshot) {
	h, err := g.registry.Start(productID.String(), snap.StartAt, snap.EndAt, g.onTick, g.onEnded)
	if err != nil {
		log.Warn().Err(err).Str("product_id", productID.String()).Msg("room clock not started")
		return
	}
	g.handles[productID] = h
}

// Leave takes c out of the room. The last member out stops the clock.
func (g *Gateway) Leave(c *Connection, productID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.manager.Leave(c, productID) {
		g.releaseLocked(productID)
	}
}

func (g *Gateway) disconnect(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, productID := range g.manager.Remove(c) {
		g.releaseLocked(productID)
	}
}

func (g *Gateway) releaseLocked(productID uuid.UUID) {
	if h, ok := g.handles[productID]; ok {
		h.Release()
		delete(g.handles, productID)
		log.Debug().Str("product_id", productID.String()).Msg("room empty, clock stopped")
	}
}

func (g *Gateway) onTick(id string, res countdown.Result) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return
	}
	msg, err := newMessage(MessageCountdown, productID, CountdownData{
		Phase:   res.Phase,
		Delta:   res.Delta,
		Display: res.Delta.String(),
	})
	if err != nil {
		return
	}
	g.manager.BroadcastToRoom(productID, msg)
}

// onEnded fires once per started clock.
func (g *Gateway) onEnded(id string) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return
	}
	g.mu.Lock()
	delete(g.handles, productID)
	g.mu.Unlock()

	if msg, err := newMessage(MessageAuctionEnded, productID, nil); err == nil {
		g.manager.BroadcastToRoom(productID, msg)
	}
	if g.waker != nil {
		g.waker.Wake()
	}
	log.Info().Str("product_id", id).Msg("auction ended")
}

func (g *Gateway) placeBid(ctx context.Context, c *Connection, productID uuid.UUID, msg ClientMessage) {
	if g.bids == nil {
		g.sendError(c, productID, msg.RequestID, fmt.Errorf("bidding is not available here: %w", apperr.ErrInvalidArgument))
		return
	}
	email := msg.BidderEmail
	if email == "" {
		email = c.Email
	}

	result, err := g.bids.PlaceBid(ctx, bidding.PlaceBidRequest{
		ProductID:   productID,
		Amount:      msg.Amount,
		BidderEmail: email,
		BidderName:  msg.BidderName,
	})
	if err != nil {
		out, mErr := newMessage(MessageBidRejected, productID, rejectionData(err))
		if mErr == nil {
			out.RequestID = msg.RequestID
			c.SendMessage(out)
		}
		return
	}
	g.manager.SetEmail(c, email)

	out, err := newMessage(MessageBidAccepted, productID, result.Snapshot())
	if err == nil {
		out.RequestID = msg.RequestID
		c.SendMessage(out)
	}
}

// BidAccepted broadcasts a bid accepted in this process. It is the path
// used when no event stream is configured.
func (g *Gateway) BidAccepted(_ context.Context, result *bidding.BidResult) {
	g.broadcastBid(result.Bid.ProductID, BidPlacedData{
		ProductID:  result.Bid.ProductID.String(),
		CurrentBid: result.Bid.Amount,
		BidderName: result.Bid.BidderName,
		Seq:        result.Bid.Seq,
	})
	if result.PreviousBidderEmail != "" {
		g.sendRefund(result.Bid.ProductID, result.PreviousBidderEmail, BidRefundedData{
			Amount:   result.PreviousAmount,
			OutbidBy: result.Bid.BidderName,
			Seq:      result.Bid.Seq,
		})
	}
}

func (g *Gateway) broadcastBid(productID uuid.UUID, data BidPlacedData) {
	if msg, err := newMessage(MessageBidPlaced, productID, data); err == nil {
		g.manager.BroadcastToRoom(productID, msg)
	}
}

func (g *Gateway) sendRefund(productID uuid.UUID, email string, data BidRefundedData) {
	if msg, err := newMessage(MessageBidRefunded, productID, data); err == nil {
		g.manager.BroadcastToBidder(productID, email, msg)
	}
}

// HandleEvent turns one stream event into room messages. Settlement
// events stop the room clock; the auction is no longer available.
func (g *Gateway) HandleEvent(env *events.Envelope) error {
	productID, err := uuid.Parse(env.ProductID)
	if err != nil {
		return fmt.Errorf("parse product id %q: %w", env.ProductID, err)
	}
	payload, err := env.DecodePayload()
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case *events.BidPlacedPayload:
		g.broadcastBid(productID, BidPlacedData{
			ProductID:  p.ProductID,
			CurrentBid: p.CurrentBid,
			BidderName: p.BidderName,
			Seq:        p.Seq,
		})
	case *events.BidRefundedPayload:
		g.sendRefund(productID, p.BidderEmail, BidRefundedData{
			Amount:   p.Amount,
			OutbidBy: p.OutbidBy,
			Seq:      p.Seq,
		})
	case *events.AuctionSettledPayload:
		g.stopClock(productID)
		if msg, err := newMessage(MessageProductSold, productID, ProductSoldData{
			OrderID:    p.OrderID,
			WinnerName: p.WinnerName,
			FinalPrice: p.FinalPrice,
		}); err == nil {
			g.manager.BroadcastToRoom(productID, msg)
		}
	case *events.AuctionClosedPayload:
		g.stopClock(productID)
		if msg, err := newMessage(MessageProductClosed, productID, nil); err == nil {
			g.manager.BroadcastToRoom(productID, msg)
		}
	default:
		log.Debug().Str("event_type", env.EventType).Msg("ignoring event type")
	}
	return nil
}

func (g *Gateway) stopClock(productID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked(productID)
}

func (g *Gateway) sendError(c *Connection, productID uuid.UUID, requestID string, err error) {
	log.Debug().Err(err).Str("connection_id", c.ID).Msg("client command failed")
	msg, mErr := newMessage(MessageError, productID, ErrorData{Kind: apperr.Kind(err), Error: err.Error()})
	if mErr != nil {
		return
	}
	msg.RequestID = requestID
	c.SendMessage(msg)
}
