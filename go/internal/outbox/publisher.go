package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type JetStreamConfig struct {
	Conn            events.ConnConfig
	StreamName      string
	SubjectPrefix   string
	MaxAge          time.Duration // How long to keep messages
	MaxMsgs         int64         // Max number of messages to keep
	Replicas        int
	DuplicateWindow time.Duration // Window for duplicate detection
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		Conn:            events.DefaultConnConfig("auction-outbox"),
		StreamName:      events.StreamName,
		SubjectPrefix:   events.SubjectPrefix,
		MaxAge:          7 * 24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(cfg JetStreamConfig) (*JetStreamPublisher, error) {
	nc, err := events.Connect(cfg.Conn)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}

	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Auction event stream fed by the outbox",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		MaxMsgs:     p.config.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    p.config.Replicas,
		Duplicates:  p.config.DuplicateWindow,
	}

	stream, err := p.js.Stream(ctx, p.config.StreamName)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		if _, err = p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().
			Str("stream", p.config.StreamName).
			Msg("created JetStream stream")
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up stream: %w", err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !isStreamConfigEqual(info.Config, sc) {
		if _, err = p.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().
			Str("stream", p.config.StreamName).
			Msg("updated JetStream stream")
	}
	return nil
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	subject := events.Subject(p.config.SubjectPrefix, event.EventType)

	data, err := marshalEnvelope(event)
	if err != nil {
		return err
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{event.EventType},
			"Product-ID": []string{event.ProductID.String()},
			"Event-ID":   []string{event.ID.String()},
		},
	},
		jetstream.WithMsgID(event.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Info().
		Str("subject", subject).
		Str("event_id", event.ID.String()).
		Uint64("sequence", ack.Sequence).
		Str("stream", ack.Stream).
		Msg("published to JetStream")

	return nil
}

// Conn exposes the connection for health checks.
func (p *JetStreamPublisher) Conn() *nats.Conn {
	return p.nc
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func isStreamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		slices.Equal(a.Subjects, b.Subjects) &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}

// newEnvelope stamps the envelope with the time the row was written,
// not the time it happened to be relayed.
func newEnvelope(event OutboxEvent) events.Envelope {
	at := event.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	return events.Envelope{
		EventID:   event.ID.String(),
		EventType: event.EventType,
		ProductID: event.ProductID.String(),
		Timestamp: at.UTC(),
		Payload:   json.RawMessage(event.Payload),
	}
}

func marshalEnvelope(event OutboxEvent) ([]byte, error) {
	data, err := json.Marshal(newEnvelope(event))
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// EnvelopeHandler consumes events in-process.
type EnvelopeHandler interface {
	HandleEvent(env *events.Envelope) error
}

// LocalPublisher hands events straight to a handler in the same process.
// Used when the API server relays its own outbox without NATS.
type LocalPublisher struct {
	handler EnvelopeHandler
}

func NewLocalPublisher(handler EnvelopeHandler) *LocalPublisher {
	return &LocalPublisher{handler: handler}
}

func (p *LocalPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := newEnvelope(event)
	if err := p.handler.HandleEvent(&env); err != nil {
		return fmt.Errorf("deliver %s locally: %w", event.EventType, err)
	}
	return nil
}

// LogPublisher only logs events. Used when no NATS URL is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("product_id", event.ProductID.String()).
		RawJSON("payload", event.Payload).
		Msg("publishing event")
	return nil
}
