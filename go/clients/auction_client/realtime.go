package auction_client

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/gateway"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RealtimeConfig configures the room socket client.
type RealtimeConfig struct {
	// URL is the socket endpoint, e.g. ws://localhost:8080/ws.
	URL string
	// Email identifies the bidder so refund notices reach this client.
	Email   string
	Dialer  *websocket.Dialer
	Clock   clockwork.Clock
	Backoff *Backoff
}

// RealtimeClient keeps one socket open, reconnecting with backoff and
// rejoining every room it was in.
type RealtimeClient struct {
	url     string
	dialer  *websocket.Dialer
	backoff *Backoff

	mu        sync.Mutex
	conn      *websocket.Conn
	rooms     map[string]bool
	onMessage func(*gateway.Message)
	onConnect func()

	writeMu sync.Mutex
}

func NewRealtimeClient(cfg RealtimeConfig) *RealtimeClient {
	target := cfg.URL
	if cfg.Email != "" {
		target += "?" + url.Values{"email": {cfg.Email}}.Encode()
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = NewBackoff(cfg.Clock)
	}
	return &RealtimeClient{
		url:     target,
		dialer:  dialer,
		backoff: backoff,
		rooms:   make(map[string]bool),
	}
}

// OnMessage sets the handler for every server message. It runs on the
// read goroutine.
func (c *RealtimeClient) OnMessage(fn func(*gateway.Message)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

// OnConnect runs after each successful connect and room rejoin.
func (c *RealtimeClient) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// Connected reports whether a socket is currently open.
func (c *RealtimeClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run connects and reads until ctx is done, reconnecting on failure.
func (c *RealtimeClient) Run(ctx context.Context) error {
	for {
		conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(fmt.Errorf("%w: %w", apperr.ErrNetworkFailure, err)).Str("url", c.url).Msg("realtime connect failed")
			if err := c.backoff.Wait(ctx); err != nil {
				return err
			}
			continue
		}

		c.backoff.Reset()
		c.attach(conn)
		c.read(ctx, conn)
		c.detach(conn)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Str("url", c.url).Msg("realtime connection lost, reconnecting")
		if err := c.backoff.Wait(ctx); err != nil {
			return err
		}
	}
}

func (c *RealtimeClient) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	rooms := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		rooms = append(rooms, id)
	}
	onConnect := c.onConnect
	c.mu.Unlock()

	for _, id := range rooms {
		if err := c.send(gateway.ClientMessage{Type: gateway.ClientJoinProductRoom, ProductID: id}); err != nil {
			log.Error().Err(err).Str("product_id", id).Msg("failed to rejoin room")
		}
	}
	log.Info().Int("rooms", len(rooms)).Msg("realtime connected")
	if onConnect != nil {
		onConnect()
	}
}

func (c *RealtimeClient) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *RealtimeClient) read(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var msg gateway.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				log.Debug().Err(err).Msg("realtime read ended")
			}
			return
		}
		c.mu.Lock()
		handler := c.onMessage
		c.mu.Unlock()
		if handler != nil {
			handler(&msg)
		}
	}
}

func (c *RealtimeClient) send(msg gateway.ClientMessage) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("realtime not connected: %w", apperr.ErrNetworkFailure)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("realtime write %s: %w: %w", msg.Type, apperr.ErrNetworkFailure, err)
	}
	return nil
}

// Join enters a product room now, or on the next connect if offline.
func (c *RealtimeClient) Join(productID string) error {
	c.mu.Lock()
	c.rooms[productID] = true
	connected := c.conn != nil
	c.mu.Unlock()

	if !connected {
		return nil
	}
	return c.send(gateway.ClientMessage{Type: gateway.ClientJoinProductRoom, ProductID: productID})
}

// Leave exits a product room and stops rejoining it.
func (c *RealtimeClient) Leave(productID string) error {
	c.mu.Lock()
	delete(c.rooms, productID)
	connected := c.conn != nil
	c.mu.Unlock()

	if !connected {
		return nil
	}
	return c.send(gateway.ClientMessage{Type: gateway.ClientLeaveProductRoom, ProductID: productID})
}

// PlaceBid sends a bid over the socket. The outcome arrives later as a
// bidAccepted or bidRejected message carrying requestID.
func (c *RealtimeClient) PlaceBid(productID string, amount decimal.Decimal, email, name, requestID string) error {
	return c.send(gateway.ClientMessage{
		Type:        gateway.ClientPlaceBid,
		ProductID:   productID,
		Amount:      amount,
		BidderEmail: email,
		BidderName:  name,
		RequestID:   requestID,
	})
}
