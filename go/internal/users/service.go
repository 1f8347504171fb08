package users

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/httpx"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// UsersApp defines what the service layer needs from the users application
type UsersApp interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*models.User, error)
	Deposit(ctx context.Context, email string, req DepositRequest) (*models.User, error)
}

// Service serves the user profile REST endpoints
type Service struct {
	app UsersApp
}

// NewService creates a new users REST service
func NewService(app UsersApp) *Service {
	return &Service{
		app: app,
	}
}

// Routes mounts under /api/auth/user.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.CreateUser)
	r.Get("/user/{email}", s.GetUserByEmail)
	r.Post("/user/{email}/deposit", s.Deposit)
	r.Patch("/{id}", s.UpdateProfile)
	return r
}

// CreateUser handles POST /api/auth/user/
func (s *Service) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	user, err := s.app.CreateUser(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.RespondJSON(w, r, http.StatusCreated, httpx.JSONResponse{"success": true, "user": user})
}

// GetUserByEmail handles GET /api/auth/user/user/{email}
func (s *Service) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := s.app.GetUserByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.RespondJSON(w, r, http.StatusOK, httpx.JSONResponse{"success": true, "user": user})
}

// Deposit handles POST /api/auth/user/user/{email}/deposit
func (s *Service) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	user, err := s.app.Deposit(r.Context(), chi.URLParam(r, "email"), req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.RespondJSON(w, r, http.StatusOK, httpx.JSONResponse{"success": true, "user": user})
}

// UpdateProfile handles PATCH /api/auth/user/{id}
func (s *Service) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req UpdateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	user, err := s.app.UpdateProfile(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.RespondJSON(w, r, http.StatusOK, httpx.JSONResponse{"success": true, "user": user})
}
