package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/clients/auction_client"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/bidding"
	"github.com/mcdev12/auctionhouse/go/internal/countdown"
	"github.com/mcdev12/auctionhouse/go/internal/gateway"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

func main() {
	var (
		server    = pflag.String("server", "http://localhost:8080", "auction server base URL")
		productID = pflag.String("product", "", "listing to follow")
		email     = pflag.String("email", "", "bidder email, needed to bid and to see refunds")
		name      = pflag.String("name", "", "bidder display name")
		bid       = pflag.String("bid", "", "place this bid once the watcher is running")
		socketBid = pflag.Bool("socket-bid", false, "send the bid over the socket instead of RPC")
		verbose   = pflag.BoolP("verbose", "v", false, "debug logging")
	)
	pflag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	id, err := uuid.Parse(*productID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "--product must be a listing id: %v\n", err)
		os.Exit(2)
	}

	var amount decimal.Decimal
	if *bid != "" {
		if amount, err = decimal.NewFromString(*bid); err != nil {
			fmt.Fprintf(os.Stderr, "bad --bid: %v\n", err)
			os.Exit(2)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := auction_client.NewAuctionClient(*server)
	var bids auction_client.BidSubmitter
	if !*socketBid {
		bids = auction_client.NewBidClient(api.HTTPClient(), *server)
	}
	wsURL := "ws" + strings.TrimPrefix(*server, "http") + auction_client.WebSocketEndpoint
	realtime := auction_client.NewRealtimeClient(auction_client.RealtimeConfig{URL: wsURL, Email: *email})

	terminal := make(chan gateway.MessageType, 1)

	watcher := auction_client.NewWatcher(id, api, bids, realtime, clockwork.NewRealClock(), auction_client.WatcherCallbacks{
		OnBid: func(s bidding.State) {
			fmt.Printf("bid   %s by %q (seq %d)\n", s.Amount, s.BidderName, s.Seq)
		},
		OnTick: func(res countdown.Result) {
			fmt.Printf("clock %-10s %s\n", res.Phase, res.Delta)
		},
		OnEnded: func() {
			fmt.Println("bidding closed, waiting for settlement")
		},
		OnRefund: func(r gateway.BidRefundedData) {
			fmt.Printf("outbid by %q, %s released\n", r.OutbidBy, r.Amount)
		},
		OnTerminal: func(t gateway.MessageType) {
			select {
			case terminal <- t:
			default:
			}
		},
		OnError: func(err error) {
			var tooLow *apperr.BidTooLowError
			if errors.As(err, &tooLow) {
				fmt.Printf("bid rejected, minimum is %s\n", tooLow.Minimum)
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		},
	})
	if err := watcher.Start(ctx); err != nil {
		log.Fatal().Err(err).Str("product_id", id.String()).Msg("failed to start watcher")
	}
	defer watcher.Close()

	if *bid != "" {
		if err := watcher.PlaceBid(ctx, amount, *email, *name); err != nil {
			log.Error().Err(err).Str("amount", amount.String()).Msg("bid not placed")
		}
	}

	select {
	case <-ctx.Done():
	case t := <-terminal:
		if t == gateway.MessageProductSold {
			fmt.Println("sold")
		} else {
			fmt.Println("closed without a winner")
		}
	}
}
