package gateway

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/countdown"
	"github.com/shopspring/decimal"
)

// ClientMessageType is a command sent by a browser or client over the socket.
type ClientMessageType string

const (
	ClientJoinProductRoom  ClientMessageType = "joinProductRoom"
	ClientLeaveProductRoom ClientMessageType = "leaveProductRoom"
	ClientPlaceBid         ClientMessageType = "placeBid"
)

// ClientMessage is one inbound command. Amount and bidder fields are only
// read for placeBid.
type ClientMessage struct {
	Type        ClientMessageType `json:"type"`
	ProductID   string            `json:"productId"`
	Amount      decimal.Decimal   `json:"amount"`
	BidderEmail string            `json:"bidderEmail,omitempty"`
	BidderName  string            `json:"bidderName,omitempty"`
	RequestID   string            `json:"requestId,omitempty"`
}

// MessageType is the type of a message pushed to clients.
type MessageType string

const (
	MessageProductData   MessageType = "productData"
	MessageBidPlaced     MessageType = "bidPlaced"
	MessageBidAccepted   MessageType = "bidAccepted"
	MessageBidRejected   MessageType = "bidRejected"
	MessageBidRefunded   MessageType = "bidRefunded"
	MessageCountdown     MessageType = "countdown"
	MessageAuctionEnded  MessageType = "auctionEnded"
	MessageProductSold   MessageType = "productSold"
	MessageProductClosed MessageType = "productClosed"
	MessageError         MessageType = "error"
)

// Message is the envelope of everything the gateway sends.
type Message struct {
	Type      MessageType     `json:"type"`
	ProductID string          `json:"productId,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// BidPlacedData is the room broadcast for an accepted bid.
type BidPlacedData struct {
	ProductID  string          `json:"productId"`
	CurrentBid decimal.Decimal `json:"currentBid"`
	BidderName string          `json:"bidderName"`
	Seq        int64           `json:"seq"`
}

// BidRejectedData explains a refused bid. MinimumBid is set for bid_too_low.
type BidRejectedData struct {
	Kind       string           `json:"kind"`
	Error      string           `json:"error"`
	MinimumBid *decimal.Decimal `json:"minimumBid,omitempty"`
}

// BidRefundedData tells an outbid bidder that their hold was released.
type BidRefundedData struct {
	Amount   decimal.Decimal `json:"amount"`
	OutbidBy string          `json:"outbidBy"`
	Seq      int64           `json:"seq"`
}

// CountdownData is one tick of a room clock.
type CountdownData struct {
	Phase   countdown.Phase `json:"phase"`
	Delta   countdown.Delta `json:"delta"`
	Display string          `json:"display"`
}

// ProductSoldData announces the winner once the order exists.
type ProductSoldData struct {
	OrderID    string          `json:"orderId"`
	WinnerName string          `json:"winnerName"`
	FinalPrice decimal.Decimal `json:"finalPrice"`
}

// ErrorData reports a failed command.
type ErrorData struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func newMessage(t MessageType, productID uuid.UUID, data interface{}) (*Message, error) {
	msg := &Message{Type: t, Timestamp: time.Now().UTC()}
	if productID != uuid.Nil {
		msg.ProductID = productID.String()
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return msg, nil
}

func rejectionData(err error) BidRejectedData {
	data := BidRejectedData{Kind: apperr.Kind(err), Error: err.Error()}
	var tooLow *apperr.BidTooLowError
	if errors.As(err, &tooLow) {
		min := tooLow.Minimum
		data.MinimumBid = &min
	}
	return data
}
