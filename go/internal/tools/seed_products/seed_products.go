package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/auctionhouse/go/internal/dbconfig"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

func main() {
	var (
		bidders    = pflag.Int("bidders", 3, "number of bidder accounts to create")
		balance    = pflag.String("balance", "5000", "starting balance of each bidder")
		products   = pflag.Int("products", 5, "number of listings to create")
		startPrice = pflag.String("start-price", "100", "starting price of each listing")
		startIn    = pflag.Duration("start-in", 0, "delay before bidding opens")
		duration   = pflag.Duration("duration", 10*time.Minute, "how long bidding stays open")
		stagger    = pflag.Duration("stagger", time.Minute, "extra duration per listing")
		seller     = pflag.String("seller", "seller@example.com", "seller email")
	)
	pflag.Parse()

	bal, err := decimal.NewFromString(*balance)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad --balance: %v\n", err)
		os.Exit(2)
	}
	price, err := decimal.NewFromString(*startPrice)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad --start-price: %v\n", err)
		os.Exit(2)
	}

	// 1) Connect using shared dbconfig
	ctx := context.Background()
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 2) Bidders, plus the seller so orders can show a contact
	var usersInserted, usersSkipped, errs int
	accounts := []string{*seller}
	for i := 1; i <= *bidders; i++ {
		accounts = append(accounts, fmt.Sprintf("bidder%d@example.com", i))
	}
	for i, email := range accounts {
		username := fmt.Sprintf("bidder%d", i)
		if i == 0 {
			username = "seller"
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO users (username, email, phone, address, balance)
            VALUES ($1, $2, '', '', $3)
            ON CONFLICT (email) DO NOTHING
        `, username, email, bal.String())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting user %s: %v\n", email, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			usersInserted++
		} else {
			usersSkipped++
		}
	}

	// 3) Listings in one batch
	start := time.Now().UTC().Add(*startIn).Truncate(time.Second)
	batch := &pgx.Batch{}
	for i := 0; i < *products; i++ {
		end := start.Add(*duration + time.Duration(i)*(*stagger))
		batch.Queue(`
            INSERT INTO products (
              title, description, seller_email,
              bidding_start_date, bidding_start_time, bidding_end_time, bidding_start_price
            ) VALUES ($1, $2, $3, $4::date, $5::time, $6, $7)
            RETURNING id
        `,
			fmt.Sprintf("Lot %d", i+1),
			fmt.Sprintf("Seeded listing %d", i+1),
			*seller,
			start.Format("2006-01-02"),
			start.Format("15:04:05"),
			end,
			price.String(),
		)
	}

	results := pool.SendBatch(ctx, batch)
	created := 0
	for i := 0; i < *products; i++ {
		var id string
		if err := results.QueryRow().Scan(&id); err != nil {
			fmt.Fprintf(os.Stderr, "error inserting listing %d: %v\n", i+1, err)
			errs++
			continue
		}
		created++
		fmt.Printf("listing %s: Lot %d\n", id, i+1)
	}
	if err := results.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close batch: %v\n", err)
		errs++
	}

	// 4) Print summary
	fmt.Printf(
		"Seed complete: %d users inserted, %d skipped, %d listings created, %d errors\n",
		usersInserted, usersSkipped, created, errs,
	)
	if errs > 0 {
		os.Exit(1)
	}
}
