package gateway

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/httpx"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades product room connections.
type WebSocketHandler struct {
	gateway *Gateway
}

func NewWebSocketHandler(g *Gateway) *WebSocketHandler {
	return &WebSocketHandler{gateway: g}
}

// HandleConnection upgrades the request. An optional productId joins that
// room right away; email identifies the bidder for refund notices.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	var productID uuid.UUID
	if raw := r.URL.Query().Get("productId"); raw != "" {
		id, err := httpx.ParseUUID("productId", raw)
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		productID = id
	}
	email := r.URL.Query().Get("email")

	c, err := h.gateway.Manager().UpgradeConnection(w, r, email)
	if err != nil {
		// The upgrader has already written the failure response.
		log.Error().Err(err).Str("email", email).Msg("failed to upgrade WebSocket connection")
		return
	}

	if productID != uuid.Nil {
		ctx, cancel := context.WithTimeout(context.Background(), h.gateway.commandTimeout)
		defer cancel()
		h.gateway.Join(ctx, c, productID)
	}
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.gateway.Manager().GetConnectionStats()
	stats["active_clocks"] = h.gateway.ActiveClocks()
	httpx.RespondJSON(w, r, http.StatusOK, stats)
}

// RegisterRoutes registers the socket routes on mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
