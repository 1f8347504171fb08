package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// StreamName is the JetStream stream holding every auction event.
	StreamName = "AUCTION_EVENTS"
	// SubjectPrefix prefixes each event subject, e.g. auction.events.BidPlaced.
	SubjectPrefix = "auction.events"
)

// Envelope is the wire form of an outbox event on the stream.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	ProductID string          `json:"productId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Subject returns the subject an event type is published on.
func Subject(prefix, eventType string) string {
	return fmt.Sprintf("%s.%s", prefix, eventType)
}

// DecodePayload unmarshals the envelope payload into the struct matching
// its event type. Unknown types yield nil and no error.
func (e *Envelope) DecodePayload() (interface{}, error) {
	var out interface{}
	switch e.EventType {
	case TypeBidPlaced:
		out = &BidPlacedPayload{}
	case TypeBidRefunded:
		out = &BidRefundedPayload{}
	case TypeAuctionSettled:
		out = &AuctionSettledPayload{}
	case TypeAuctionClosed:
		out = &AuctionClosedPayload{}
	default:
		return nil, nil
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return out, nil
}
