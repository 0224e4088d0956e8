package repository

import (
	"context"

	"postboard/internal/domain"
)

// UserRepository defines persistence operations for User entities.
//
// Create must check username and email uniqueness and insert in one atomic
// step, returning ErrConflict when either is taken.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}
