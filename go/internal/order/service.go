package order

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/httpx"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// OrderApp defines what the service layer needs from the order application
type OrderApp interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, bool, error)
	GetOrderByProduct(ctx context.Context, productID uuid.UUID) (*models.Order, error)
	ListOrdersByBuyer(ctx context.Context, email string) ([]*models.Order, error)
}

// Service serves the order REST endpoints
type Service struct {
	app OrderApp
}

// NewService creates a new order REST service
func NewService(app OrderApp) *Service {
	return &Service{app: app}
}

// Routes mounts under /api/orders.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.CreateOrder)
	r.Get("/product/{productId}", s.GetOrderByProduct)
	r.Get("/buyer/{email}", s.ListOrdersByBuyer)
	return r
}

// CreateOrder handles POST /api/orders/
func (s *Service) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	o, created, err := s.app.CreateOrder(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.RespondJSON(w, r, status, httpx.JSONResponse{"success": true, "order": o, "created": created})
}

// GetOrderByProduct handles GET /api/orders/product/{productId}
func (s *Service) GetOrderByProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseUUID("productId", chi.URLParam(r, "productId"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	o, err := s.app.GetOrderByProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.RespondJSON(w, r, http.StatusOK, httpx.JSONResponse{"success": true, "order": o})
}

// ListOrdersByBuyer handles GET /api/orders/buyer/{email}
func (s *Service) ListOrdersByBuyer(w http.ResponseWriter, r *http.Request) {
	orders, err := s.app.ListOrdersByBuyer(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.RespondJSON(w, r, http.StatusOK, httpx.JSONResponse{"success": true, "orders": orders})
}
