package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/validation"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// UsersRepository defines what the app layer needs from the repository
type UsersRepository interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*models.User, error)
	Deposit(ctx context.Context, email string, amount decimal.Decimal) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// App handles users business logic
type App struct {
	repo UsersRepository
}

// NewApp creates a new users App
func NewApp(repo UsersRepository) *App {
	return &App{
		repo: repo,
	}
}

// CreateUser creates a new user with validation
func (a *App) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := a.ensureFree(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	user, err := a.repo.CreateUser(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("username", user.Username).Str("email", user.Email).Msg("created user")
	return user, nil
}

// ensureFree rejects a username or email that already belongs to someone.
func (a *App) ensureFree(ctx context.Context, username, email string) error {
	if existing, err := a.repo.GetUserByUsername(ctx, username); err == nil && existing != nil {
		return fmt.Errorf("user with username %s already exists: %w", username, apperr.ErrInvalidArgument)
	} else if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if existing, err := a.repo.GetUserByEmail(ctx, email); err == nil && existing != nil {
		return fmt.Errorf("user with email %s already exists: %w", email, apperr.ErrInvalidArgument)
	} else if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return nil
}

// GetUser retrieves a user by ID
func (a *App) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves the contact profile used to address orders
func (a *App) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", apperr.ErrInvalidArgument)
	}
	user, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// UpdateProfile updates a user's contact fields
func (a *App) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	existing, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if req.Username != existing.Username {
		if conflict, err := a.repo.GetUserByUsername(ctx, req.Username); err == nil && conflict != nil {
			return nil, fmt.Errorf("user with username %s already exists: %w", req.Username, apperr.ErrInvalidArgument)
		}
	}

	user, err := a.repo.UpdateProfile(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	log.Info().Str("user_id", id.String()).Msg("updated user profile")
	return user, nil
}

// Deposit credits a user's wallet
func (a *App) Deposit(ctx context.Context, email string, req DepositRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	user, err := a.repo.Deposit(ctx, email, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to deposit: %w", err)
	}
	log.Info().Str("email", email).Str("amount", req.Amount.String()).Msg("deposit")
	return user, nil
}

// DeleteUser deletes a user by ID
func (a *App) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("user not found: %w", err)
	}
	if err := a.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	log.Info().Str("username", user.Username).Str("email", user.Email).Msg("deleted user")
	return nil
}
