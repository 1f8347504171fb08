package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/sqlutil"
	"github.com/shopspring/decimal"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	UpdateProfile(ctx context.Context, arg UpdateProfileParams) (User, error)
	Deposit(ctx context.Context, email string, amount decimal.Decimal) (User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// Repository implements user data access operations
type Repository struct {
	queries Querier
}

// NewRepository creates a new users repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	user, err := r.queries.CreateUser(ctx, CreateUserParams{
		Username: req.Username,
		Email:    req.Email,
		Phone:    sqlutil.ToSqlString(req.Phone),
		Address:  sqlutil.ToSqlString(req.Address),
		Balance:  req.Balance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return dbUserToModel(user), nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user "+id.String())
	}
	return dbUserToModel(user), nil
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err, "user "+email)
	}
	return dbUserToModel(user), nil
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "user "+username)
	}
	return dbUserToModel(user), nil
}

// UpdateProfile updates a user's contact fields
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*models.User, error) {
	user, err := r.queries.UpdateProfile(ctx, UpdateProfileParams{
		ID:       id,
		Username: req.Username,
		Phone:    sqlutil.ToSqlString(req.Phone),
		Address:  sqlutil.ToSqlString(req.Address),
	})
	if err != nil {
		return nil, notFound(err, "user "+id.String())
	}
	return dbUserToModel(user), nil
}

// Deposit adds to a user's balance
func (r *Repository) Deposit(ctx context.Context, email string, amount decimal.Decimal) (*models.User, error) {
	user, err := r.queries.Deposit(ctx, email, amount)
	if err != nil {
		return nil, notFound(err, "user "+email)
	}
	return dbUserToModel(user), nil
}

// DeleteUser deletes a user by ID
func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := r.queries.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// dbUserToModel converts a database user to domain model
func dbUserToModel(dbUser User) *models.User {
	return &models.User{
		ID:        dbUser.ID,
		Username:  dbUser.Username,
		Email:     dbUser.Email,
		Phone:     sqlutil.FromSqlString(dbUser.Phone, ""),
		Address:   sqlutil.FromSqlString(dbUser.Address, ""),
		Balance:   dbUser.Balance,
		Held:      dbUser.Held,
		CreatedAt: dbUser.CreatedAt,
	}
}
