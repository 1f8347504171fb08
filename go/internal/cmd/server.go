package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mcdev12/auctionhouse/go/internal/httpx"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(config *Config, services *Services, database *sql.DB) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: config.Server.AllowedOrigins,
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Auction-Error", "X-Request-ID"},
	})

	// Register services
	registerServices(mux, services)

	// Add health check endpoint
	setupHealthCheck(mux, services, database)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Server.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	// REST endpoints
	api := chi.NewRouter()
	api.Use(middleware.Recoverer)
	api.Mount("/api/products", services.Products.Routes())
	api.Mount("/api/orders", services.Orders.Routes())
	api.Mount("/api/auth/user", services.Users.Routes())
	mux.Handle("/api/", api)

	// Register bidding service
	biddingPath, biddingHandler := services.Bidding.Handler()
	mux.Handle(biddingPath, biddingHandler)

	// WebSocket rooms
	services.Gateway.RegisterRoutes(mux)
}

func setupHealthCheck(mux *http.ServeMux, services *Services, database *sql.DB) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			httpx.RespondJSON(w, r, http.StatusServiceUnavailable, httpx.JSONResponse{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		body := httpx.JSONResponse{
			"status":  "healthy",
			"gateway": services.Gateway.GetStats(),
		}
		if services.Scheduler != nil {
			body["settlement_in_flight"] = services.Scheduler.InFlight()
		}
		if services.Outbox != nil {
			body["outbox_listening"] = services.Outbox.Running()
		}
		httpx.RespondJSON(w, r, http.StatusOK, body)
	})
}
