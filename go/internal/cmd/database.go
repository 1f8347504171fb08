package main

import (
	"context"
	"database/sql"

	"github.com/mcdev12/auctionhouse/go/internal/dbconfig"
)

func setupDatabase(ctx context.Context) (*sql.DB, error) {
	return dbconfig.Open(ctx, dbconfig.NewConfigFromEnv())
}
