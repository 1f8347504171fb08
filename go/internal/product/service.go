package product

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/bidding"
	"github.com/mcdev12/auctionhouse/go/internal/httpx"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// ProductApp defines what the service layer needs from the product application
type ProductApp interface {
	ListProducts(ctx context.Context, status models.ProductStatus, limit int32) ([]View, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*View, error)
	PlaceTempBid(ctx context.Context, id uuid.UUID, req TempBidRequest) (*bidding.BidResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req StatusRequest) (*models.Product, error)
	DeleteSettled(ctx context.Context, id uuid.UUID) error
}

// Service serves the listing REST endpoints
type Service struct {
	app ProductApp
}

// NewService creates a new product REST service
func NewService(app ProductApp) *Service {
	return &Service{
		app: app,
	}
}

// Routes mounts under /api/products.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.ListProducts)
	r.Get("/{id}", s.GetProduct)
	r.Patch("/tempdata/{id}", s.PlaceTempBid)
	r.Patch("/statuspatch/{id}", s.UpdateStatus)
	r.Delete("/deleteSuccessProduct/{id}", s.DeleteSettled)
	return r
}

// ListProducts handles GET /api/products/?status=&limit=
func (s *Service) ListProducts(w http.ResponseWriter, r *http.Request) {
	status := models.ProductStatus(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	products, err := s.app.ListProducts(r.Context(), status, int32(limit))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.RespondJSON(w, r, http.StatusOK, httpx.JSONResponse{"success": true, "products": products})
}

// GetProduct handles GET /api/products/{id}
func (s *Service) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	p, err := s.app.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.RespondJSON(w, r, http.StatusOK, httpx.JSONResponse{"success": true, "product": p})
}

// PlaceTempBid handles PATCH /api/products/tempdata/{id}
func (s *Service) PlaceTempBid(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req TempBidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	result, err := s.app.PlaceTempBid(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.RespondJSON(w, r, http.StatusOK, httpx.JSONResponse{
		"success": true,
		"bid":     result.Bid,
		"state":   result.Snapshot(),
	})
}

// UpdateStatus handles PATCH /api/products/statuspatch/{id}
func (s *Service) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req StatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	p, err := s.app.UpdateStatus(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.RespondJSON(w, r, http.StatusOK, httpx.JSONResponse{"success": true, "product": p})
}

// DeleteSettled handles DELETE /api/products/deleteSuccessProduct/{id}
func (s *Service) DeleteSettled(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := s.app.DeleteSettled(r.Context(), id); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.RespondJSON(w, r, http.StatusOK, httpx.JSONResponse{"success": true})
}
