package auction_client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/auctionhouse/go/internal/gateway"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second

// roomServer is a bare socket server that records client commands.
type roomServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  []*websocket.Conn
	emails []string

	inbox chan gateway.ClientMessage
}

func newRoomServer(t *testing.T) *roomServer {
	t.Helper()
	rs := &roomServer{inbox: make(chan gateway.ClientMessage, 64)}
	rs.srv = httptest.NewServer(http.HandlerFunc(rs.serve))
	t.Cleanup(func() {
		rs.dropAll()
		rs.srv.Close()
	})
	return rs
}

func (rs *roomServer) url() string {
	return "ws" + strings.TrimPrefix(rs.srv.URL, "http") + WebSocketEndpoint
}

func (rs *roomServer) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := rs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	rs.mu.Lock()
	rs.conns = append(rs.conns, conn)
	rs.emails = append(rs.emails, r.URL.Query().Get("email"))
	rs.mu.Unlock()

	for {
		var msg gateway.ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		rs.inbox <- msg
	}
}

// push writes msg to the newest connection.
func (rs *roomServer) push(t *testing.T, msgType gateway.MessageType, productID uuid.UUID, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	require.NotEmpty(t, rs.conns)
	conn := rs.conns[len(rs.conns)-1]
	require.NoError(t, conn.WriteJSON(gateway.Message{
		Type:      msgType,
		ProductID: productID.String(),
		Timestamp: time.Now(),
		Data:      raw,
	}))
}

func (rs *roomServer) dropAll() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, c := range rs.conns {
		_ = c.Close()
	}
}

func (rs *roomServer) connections() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.conns)
}

func (rs *roomServer) expect(t *testing.T, want gateway.ClientMessageType) gateway.ClientMessage {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case msg := <-rs.inbox:
			if msg.Type == want {
				return msg
			}
		case <-deadline:
			t.Fatalf("no %s received", want)
			return gateway.ClientMessage{}
		}
	}
}

func fastBackoff() *Backoff {
	b := NewBackoff(nil)
	b.Base = 5 * time.Millisecond
	b.Max = 20 * time.Millisecond
	b.Jitter = 0
	b.Reset()
	return b
}

func timeout() <-chan time.Time {
	return time.After(waitFor)
}
