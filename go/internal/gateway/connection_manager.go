package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager tracks sockets and the product rooms they joined.
type ConnectionManager struct {
	rooms map[uuid.UUID]map[*Connection]bool
	conns map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage

	// onMessage and onDisconnect are set by the Gateway.
	onMessage    func(c *Connection, msg ClientMessage)
	onDisconnect func(c *Connection)
}

// Connection is one client socket. A connection may sit in several rooms.
type Connection struct {
	ID      string
	Email   string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time

	sendMu sync.Mutex
	closed bool
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is a message for a whole room, or for the sockets of
// one bidder in it when Email is set.
type BroadcastMessage struct {
	ProductID uuid.UUID
	Message   *Message
	Email     string
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	return &ConnectionManager{
		rooms: make(map[uuid.UUID]map[*Connection]bool),
		conns: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcasts until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a socket and starts its pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, email string) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		Email:       email,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.mu.Lock()
	cm.conns[c] = true
	cm.mu.Unlock()

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("email", email).
		Msg("WebSocket connection established")
	return c, nil
}

// SetEmail records the bidder behind c if it is not known yet.
func (cm *ConnectionManager) SetEmail(c *Connection, email string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if c.Email == "" {
		c.Email = email
	}
}

// Join adds c to the room and reports whether the room was empty before.
// A connection already removed joins nothing.
func (cm *ConnectionManager) Join(c *Connection, productID uuid.UUID) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.conns[c] {
		return false
	}
	room := cm.rooms[productID]
	first := len(room) == 0
	if room == nil {
		room = make(map[*Connection]bool)
		cm.rooms[productID] = room
	}
	room[c] = true

	log.Debug().
		Str("connection_id", c.ID).
		Str("product_id", productID.String()).
		Int("room_size", len(room)).
		Msg("joined product room")
	return first
}

// Leave removes c from the room and reports whether the room is now empty.
// Leaving a room c never joined reports false.
func (cm *ConnectionManager) Leave(c *Connection, productID uuid.UUID) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.leaveLocked(c, productID)
}

func (cm *ConnectionManager) leaveLocked(c *Connection, productID uuid.UUID) bool {
	room, ok := cm.rooms[productID]
	if !ok || !room[c] {
		return false
	}
	delete(room, c)
	if len(room) > 0 {
		return false
	}
	delete(cm.rooms, productID)
	return true
}

// Remove drops c from every room and returns the rooms it left empty.
func (cm *ConnectionManager) Remove(c *Connection) []uuid.UUID {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.conns[c] {
		return nil
	}
	delete(cm.conns, c)

	var emptied []uuid.UUID
	for productID := range cm.rooms {
		if cm.leaveLocked(c, productID) {
			emptied = append(emptied, productID)
		}
	}
	c.closeSend()

	log.Info().Str("connection_id", c.ID).Int("rooms_emptied", len(emptied)).Msg("connection unregistered")
	return emptied
}

// RoomSize returns how many sockets are in a room.
func (cm *ConnectionManager) RoomSize(productID uuid.UUID) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.rooms[productID])
}

// BroadcastToRoom queues msg for every socket in the room.
func (cm *ConnectionManager) BroadcastToRoom(productID uuid.UUID, msg *Message) {
	select {
	case cm.broadcastCh <- BroadcastMessage{ProductID: productID, Message: msg}:
	default:
		log.Warn().Str("product_id", productID.String()).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToBidder queues msg for the sockets of one bidder in the room.
func (cm *ConnectionManager) BroadcastToBidder(productID uuid.UUID, email string, msg *Message) {
	select {
	case cm.broadcastCh <- BroadcastMessage{ProductID: productID, Message: msg, Email: email}:
	default:
		log.Warn().
			Str("product_id", productID.String()).
			Str("email", email).
			Msg("broadcast channel full, dropping bidder message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	var targets []*Connection
	for conn := range cm.rooms[message.ProductID] {
		if message.Email != "" && conn.Email != message.Email {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(message.Message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal message for broadcast")
		return
	}
	for _, conn := range targets {
		conn.enqueue(data)
	}

	log.Debug().
		Str("type", string(message.Message.Type)).
		Str("product_id", message.ProductID.String()).
		Int("connections", len(targets)).
		Msg("message broadcasted")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	roomCounts := make(map[string]int, len(cm.rooms))
	for productID, conns := range cm.rooms {
		roomCounts[productID.String()] = len(conns)
	}
	return map[string]interface{}{
		"total_connections": len(cm.conns),
		"active_rooms":      len(cm.rooms),
		"room_connections":  roomCounts,
	}
}

// SendMessage writes msg to this socket only.
func (c *Connection) SendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal message")
		return
	}
	c.enqueue(data)
}

// enqueue hands data to the write pump. A full buffer means the client
// is not keeping up, so the socket is closed and the read pump cleans up.
func (c *Connection) enqueue(data []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Warn().Str("connection_id", c.ID).Msg("connection send buffer full, closing connection")
		_ = c.Conn.Close()
	}
}

func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Connection) disconnect() {
	if c.Manager.onDisconnect != nil {
		c.Manager.onDisconnect(c)
		return
	}
	c.Manager.Remove(c)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.disconnect()
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			errMsg, _ := newMessage(MessageError, uuid.Nil, ErrorData{Kind: "invalid_argument", Error: "malformed message"})
			c.SendMessage(errMsg)
			continue
		}
		if c.Manager.onMessage != nil {
			c.Manager.onMessage(c, msg)
		}
	}
}
