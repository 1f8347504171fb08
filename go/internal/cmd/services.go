package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/bidding"
	"github.com/mcdev12/auctionhouse/go/internal/cache"
	"github.com/mcdev12/auctionhouse/go/internal/dbconfig"
	"github.com/mcdev12/auctionhouse/go/internal/gateway"
	"github.com/mcdev12/auctionhouse/go/internal/order"
	"github.com/mcdev12/auctionhouse/go/internal/outbox"
	"github.com/mcdev12/auctionhouse/go/internal/product"
	"github.com/mcdev12/auctionhouse/go/internal/settlement"
	"github.com/mcdev12/auctionhouse/go/internal/users"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Users    *users.Service
	Products *product.Service
	Orders   *order.Service
	Bidding  *bidding.Service
	Gateway  *gateway.Service

	// Scheduler is nil when settlement runs as its own process.
	Scheduler *settlement.Scheduler
	// Outbox is nil when the relay runs as its own process.
	Outbox *outbox.Listener

	redis     *redis.Client
	publisher *outbox.JetStreamPublisher
}

func setupServices(ctx context.Context, database *sql.DB, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()
	s := &Services{}

	// Bid cache, optional
	var snapshots bidding.SnapshotCache
	var invalidator product.Invalidator
	if config.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, config.Redis.Config)
		if err != nil {
			log.Warn().Err(err).Str("addr", config.Redis.Addr).Msg("redis unavailable; serving bid state from the database")
		} else {
			s.redis = client
			bidCache := cache.NewBidCache(client, config.Redis.TTL)
			snapshots = bidCache
			invalidator = bidCache
		}
	}

	// Users
	userRepo := users.NewRepository(users.New(database))
	userApp := users.NewApp(userRepo)
	s.Users = users.NewService(userApp)

	// Bidding
	bidApp := bidding.NewApp(bidding.NewRepository(database), snapshots, clock)
	s.Bidding = bidding.NewService(bidApp)

	// Products
	productApp := product.NewApp(product.NewRepository(database), bidApp, invalidator, clock)
	s.Products = product.NewService(productApp)

	// Orders
	orderApp := order.NewApp(order.NewRepository(database))
	s.Orders = order.NewService(orderApp)

	// Settlement
	var waker gateway.Waker
	if config.Settlement.Embedded {
		repo := settlement.NewRepository(database)
		var settleCache settlement.Invalidator
		if invalidator != nil {
			settleCache = invalidator
		}
		settler := settlement.NewSettler(repo, clock, settleCache)
		s.Scheduler = settlement.NewScheduler(repo, settler, clock, settlement.SchedulerConfig{
			Workers:   config.Settlement.Workers,
			BatchSize: int32(config.Settlement.BatchSize),
			IdlePoll:  config.Settlement.IdlePoll,
		})
		waker = s.Scheduler
	}

	// Gateway
	gwConfig := gateway.Config{ConnectionConfig: gateway.DefaultConnectionConfig()}
	if config.Gateway.SendBufferSize > 0 {
		gwConfig.ConnectionConfig.SendBufferSize = config.Gateway.SendBufferSize
	}
	if config.Gateway.PingInterval > 0 {
		gwConfig.ConnectionConfig.PingInterval = config.Gateway.PingInterval
	}
	if config.NATS.Enabled {
		js := gateway.DefaultJetStreamConsumerConfig()
		js.Conn.URL = config.NATS.URL
		gwConfig.JetStream = &js
	}
	gw, err := gateway.NewService(ctx, gwConfig, bidApp, bidApp, clock, waker)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	s.Gateway = gw

	// Outbox relay
	if config.Outbox.Embedded {
		if err := s.setupOutbox(database, config, gw.Gateway()); err != nil {
			s.Close()
			return nil, err
		}
	}

	// With neither the stream nor a local relay, rooms hear about bids
	// straight from the app and settlement outcomes are not pushed.
	if !gw.Streaming() && s.Outbox == nil {
		log.Warn().Msg("no event delivery configured; rooms will not see settlement outcomes")
		bidApp.SetNotifier(gw.Gateway())
	}

	return s, nil
}

func (s *Services) setupOutbox(database *sql.DB, config *Config, gw *gateway.Gateway) error {
	var publisher outbox.EventPublisher
	if config.NATS.Enabled {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.Conn.URL = config.NATS.URL
		js, err := outbox.NewJetStreamPublisher(jsCfg)
		if err != nil {
			return fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		s.publisher = js
		publisher = js
	} else {
		publisher = outbox.NewLocalPublisher(gw)
	}

	relayCfg := outbox.DefaultRelayConfig()
	if config.Outbox.BatchSize > 0 {
		relayCfg.BatchSize = int32(config.Outbox.BatchSize)
	}
	relay := outbox.NewRelay(outbox.NewApp(outbox.NewRepository(database)), publisher, nil, nil, relayCfg)

	ltCfg := outbox.DefaultListenerConfig()
	ltCfg.DatabaseURL = dbconfig.NewConfigFromEnv().DSN()
	if config.Outbox.FallbackInterval > 0 {
		ltCfg.FallbackInterval = config.Outbox.FallbackInterval
	}
	listener, err := outbox.NewListener(relay, ltCfg)
	if err != nil {
		return fmt.Errorf("failed to create outbox listener: %w", err)
	}
	s.Outbox = listener
	return nil
}

func (s *Services) Close() {
	if s.Outbox != nil {
		if err := s.Outbox.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop outbox listener")
		}
	}
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}
}
