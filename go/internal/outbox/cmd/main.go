package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionhouse/go/internal/dbconfig"
	"github.com/mcdev12/auctionhouse/go/internal/outbox"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := dbconfig.NewConfigFromEnv()
	dsn := cfg.DSN()
	db, err := dbconfig.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	var (
		publisher outbox.EventPublisher = outbox.LogPublisher{}
		natsConn  *nats.Conn
	)
	if os.Getenv("OUTBOX_PUBLISHER") != "log" {
		jsCfg := outbox.DefaultJetStreamConfig()
		if url := os.Getenv("NATS_URL"); url != "" {
			jsCfg.Conn.URL = url
		}
		js, err := outbox.NewJetStreamPublisher(jsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("create JetStream publisher")
		}
		defer func() {
			if err := js.Close(); err != nil {
				log.Error().Err(err).Msg("close publisher")
			}
		}()
		publisher, natsConn = js, js.Conn()
	} else {
		log.Warn().Msg("OUTBOX_PUBLISHER=log: events are logged, not published")
	}

	metrics := outbox.NewCounterMetrics()
	app := outbox.NewApp(outbox.NewRepository(db))
	relay := outbox.NewRelay(app, publisher, metrics, nil, outbox.DefaultRelayConfig())

	ltCfg := outbox.DefaultListenerConfig()
	ltCfg.DatabaseURL = dsn
	if iv := os.Getenv("FALLBACK_INTERVAL"); iv != "" {
		if d, err := time.ParseDuration(iv); err == nil {
			ltCfg.FallbackInterval = d
		}
	}

	listener, err := outbox.NewListener(relay, ltCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create outbox listener")
	}
	defer listener.Stop()

	health := outbox.NewRelayHealthChecker(relay, listener, db, natsConn, 5*time.Minute)
	mux := http.NewServeMux()
	mux.Handle("/health", health)
	mux.Handle("/metrics", outbox.NewPrometheusExporter(health, metrics))

	healthAddr := os.Getenv("OUTBOX_HEALTH_ADDR")
	if healthAddr == "" {
		healthAddr = ":8081"
	}
	srv := &http.Server{Addr: healthAddr, Handler: mux}
	go func() {
		log.Info().Str("addr", healthAddr).Msg("outbox health endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server failed")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("starting outbox relay")
		errCh <- listener.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("listener exited unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server shutdown")
	}
	log.Info().Msg("graceful shutdown complete")
}
