package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stepweaver/cashflow-server/internal/domain"
	domainerrors "github.com/stepweaver/cashflow-server/internal/errors"
	"github.com/stepweaver/cashflow-server/internal/store"
)

// UserService handles account administration.
type UserService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(st *store.Store, logger *slog.Logger) *UserService {
	return &UserService{
		store:  st,
		logger: logger,
	}
}

// ListUsers returns all accounts, newest first, without password hashes.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitized())
	}
	return out, nil
}

// DeactivateUser disables an account. Deactivation is idempotent.
func (s *UserService) DeactivateUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.DeactivateUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("deactivate user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User deactivated",
			"user_id", userID,
		)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}
