package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	Conn              events.ConnConfig
	StreamName        string
	ConsumerName      string
	SubjectFilter     string
	MaxDeliver        int
	AckWait           time.Duration
	MaxAckPending     int
	InactiveThreshold time.Duration
}

// DefaultJetStreamConsumerConfig gives each gateway instance its own
// consumer so that every instance sees every event.
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	name := "auction-gateway-" + uuid.NewString()[:8]
	return JetStreamConsumerConfig{
		Conn:              events.DefaultConnConfig(name),
		StreamName:        events.StreamName,
		ConsumerName:      name,
		SubjectFilter:     events.SubjectPrefix + ".>",
		MaxDeliver:        5,
		AckWait:           30 * time.Second,
		MaxAckPending:     100,
		InactiveThreshold: 5 * time.Minute,
	}
}

// EventHandler receives decoded stream events.
type EventHandler interface {
	HandleEvent(env *events.Envelope) error
}

// EventConsumer consumes auction events from JetStream and hands them to
// the gateway.
type EventConsumer struct {
	handler  EventHandler
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   JetStreamConsumerConfig
}

// NewEventConsumer connects to NATS and creates the consumer.
func NewEventConsumer(ctx context.Context, handler EventHandler, config JetStreamConsumerConfig) (*EventConsumer, error) {
	nc, err := events.Connect(config.Conn)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := &EventConsumer{
		handler: handler,
		nc:      nc,
		js:      js,
		config:  config,
	}
	if err := ec.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return ec, nil
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:              ec.config.ConsumerName,
		Description:       "Auction gateway WebSocket consumer",
		FilterSubject:     ec.config.SubjectFilter,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		MaxDeliver:        ec.config.MaxDeliver,
		AckWait:           ec.config.AckWait,
		MaxAckPending:     ec.config.MaxAckPending,
		ReplayPolicy:      jetstream.ReplayInstantPolicy,
		InactiveThreshold: ec.config.InactiveThreshold,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("JetStream consumer ready")

	ec.consumer = consumer
	return nil
}

// Start consumes until ctx is done.
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			ec.process(msg)
		}
	}
}

func (ec *EventConsumer) process(msg jetstream.Msg) {
	env, err := decodeEnvelope(msg.Data())
	if err != nil {
		// Redelivery cannot fix a malformed message.
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed event")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to TERM message")
		}
		return
	}

	if err := ec.handler.HandleEvent(env); err != nil {
		log.Error().
			Err(err).
			Str("event_id", env.EventID).
			Str("event_type", env.EventType).
			Msg("failed to process event")
		if nakErr := msg.Nak(); nakErr != nil {
			log.Error().Err(nakErr).Msg("failed to NAK message")
		}
		return
	}

	if ackErr := msg.Ack(); ackErr != nil {
		log.Error().Err(ackErr).Msg("failed to ACK message")
	}
}

func decodeEnvelope(data []byte) (*events.Envelope, error) {
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	if env.EventType == "" || env.ProductID == "" {
		return nil, fmt.Errorf("event envelope %q is missing type or product", env.EventID)
	}
	return &env, nil
}

// Stop closes the NATS connection. The ephemeral consumer expires after
// InactiveThreshold.
func (ec *EventConsumer) Stop() {
	log.Info().Msg("stopping event consumer")
	if ec.nc != nil {
		ec.nc.Close()
	}
}

// Connected reports whether the NATS connection is up.
func (ec *EventConsumer) Connected() bool {
	return ec.nc != nil && ec.nc.IsConnected()
}
