package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionhouse/go/internal/cache"
	"github.com/mcdev12/auctionhouse/go/internal/dbconfig"
	"github.com/mcdev12/auctionhouse/go/internal/settlement"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := dbconfig.NewConfigFromEnv()
	db, err := dbconfig.Open(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// The bid cache is optional; settlement is correct without it.
	var invalidator settlement.Invalidator
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client, err := cache.NewRedisClient(ctx, cache.Config{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable; settling without cache invalidation")
		} else {
			defer client.Close()
			invalidator = cache.NewBidCache(client, 0)
		}
	}

	cfg := settlement.DefaultSchedulerConfig()
	if n, err := strconv.Atoi(os.Getenv("SETTLEMENT_WORKERS")); err == nil && n > 0 {
		cfg.Workers = n
	}

	repo := settlement.NewRepository(db)
	clock := clockwork.NewRealClock()
	settler := settlement.NewSettler(repo, clock, invalidator)
	scheduler := settlement.NewScheduler(repo, settler, clock, cfg)

	log.Info().
		Str("database", dbCfg.Database).
		Int("workers", cfg.Workers).
		Msg("starting settlement scheduler")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	addr := os.Getenv("SETTLEMENT_HEALTH_ADDR")
	if addr == "" {
		addr = ":8082"
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health check server failed")
		}
	}()

	if err := scheduler.Run(ctx); err != nil {
		log.Error().Err(err).Msg("settlement scheduler failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health check server shutdown failed")
	}
	log.Info().Msg("settlement shutdown complete")
}
