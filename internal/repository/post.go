package repository

import (
	"context"

	"postboard/internal/domain"
)

// PostFilter narrows a post listing. Zero Limit means no limit.
type PostFilter struct {
	PublicOnly bool
	OwnerID    *int64
	Offset     int
	Limit      int
}

// PostRepository exposes persistence operations for Post records.
//
// Create and Update enforce (title, content) uniqueness atomically and
// return ErrConflict on a clash with a different post.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context, filter PostFilter) ([]domain.Post, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id int64) error
}
