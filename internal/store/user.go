package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/stepweaver/cashflow-server/internal/domain"
)

// CreateUser persists a new user.
// Returns ErrAlreadyExists when the normalized email is taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return s.Users.Create(ctx, user.ID, user)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.Users.Get(ctx, userID)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.Users.GetByIndex(ctx, "email", email)
}

// ListUsers returns all users ordered by creation time, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	for u, err := range s.Users.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})

	return users, nil
}

// DeactivateUser marks a user inactive. Idempotent on already-inactive users.
func (s *Store) DeactivateUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.Users.Mutate(ctx, userID, func(u *domain.User) error {
		u.Active = false
		return nil
	})
}
