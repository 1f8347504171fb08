package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service bundles the gateway, its socket routes and, when an event stream
// is configured, the JetStream consumer feeding it.
type Service struct {
	gateway       *Gateway
	wsHandler     *WebSocketHandler
	eventConsumer *EventConsumer
}

// Config holds configuration for the gateway service. A nil JetStream
// config runs without a stream; callers then wire the Gateway as the
// bidding notifier.
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStream        *JetStreamConsumerConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	js := DefaultJetStreamConsumerConfig()
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStream:        &js,
	}
}

// NewService creates the gateway and connects its consumer.
func NewService(ctx context.Context, config Config, state StateProvider, bids BidPlacer, clock clockwork.Clock, waker Waker) (*Service, error) {
	cm := NewConnectionManager(config.ConnectionConfig)
	g := NewGateway(cm, state, bids, clock, waker)

	s := &Service{
		gateway:   g,
		wsHandler: NewWebSocketHandler(g),
	}
	if config.JetStream != nil {
		consumer, err := NewEventConsumer(ctx, g, *config.JetStream)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}
	return s, nil
}

// Gateway returns the room gateway.
func (s *Service) Gateway() *Gateway {
	return s.gateway
}

// Streaming reports whether room updates come from the event stream.
func (s *Service) Streaming() bool {
	return s.eventConsumer != nil
}

// Start runs the gateway until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("streaming", s.Streaming()).Msg("starting auction gateway")

	go s.gateway.Manager().Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("auction gateway shutting down")
	s.Stop()
	return nil
}

// Stop halts room clocks and the consumer.
func (s *Service) Stop() {
	s.gateway.Stop()
	if s.eventConsumer != nil {
		s.eventConsumer.Stop()
	}
	log.Info().Msg("auction gateway stopped")
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.gateway.Manager().GetConnectionStats()
	stats["service"] = "auction_gateway"
	stats["active_clocks"] = s.gateway.ActiveClocks()
	stats["streaming"] = s.Streaming()
	return stats
}
