package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

// MaxPageSize caps how many posts one listing returns.
const MaxPageSize = 100

// PostInput is the full set of fields an owner controls.
type PostInput struct {
	Title   string
	Content string
	Public  bool
}

// PostService coordinates post operations and their ownership checks.
type PostService interface {
	Create(ctx context.Context, ownerID int64, input PostInput) (*domain.Post, error)
	Get(ctx context.Context, actorID, id int64) (*domain.Post, error)
	ListPublic(ctx context.Context, skip, limit int) ([]domain.Post, error)
	Update(ctx context.Context, actorID, id int64, input PostInput) (*domain.Post, error)
	Delete(ctx context.Context, actorID, id int64) error
}

type postService struct {
	posts repository.PostRepository
}

func NewPostService(posts repository.PostRepository) PostService {
	return &postService{posts: posts}
}

func (s *postService) Create(ctx context.Context, ownerID int64, input PostInput) (*domain.Post, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	post := &domain.Post{
		OwnerID: ownerID,
		Title:   input.Title,
		Content: input.Content,
		Public:  input.Public,
	}
	if _, err := s.posts.Create(ctx, post); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrPostAlreadyExists
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) Get(ctx context.Context, actorID, id int64) (*domain.Post, error) {
	return s.authorize(ctx, actorID, id, ActionRead)
}

// ListPublic pages through public posts in id order. A limit above
// MaxPageSize is clamped to it.
func (s *postService) ListPublic(ctx context.Context, skip, limit int) ([]domain.Post, error) {
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", ErrValidation)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrValidation)
	}
	if limit == 0 {
		return []domain.Post{}, nil
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return s.posts.List(ctx, repository.PostFilter{
		PublicOnly: true,
		Offset:     skip,
		Limit:      limit,
	})
}

func (s *postService) Update(ctx context.Context, actorID, id int64, input PostInput) (*domain.Post, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	post, err := s.authorize(ctx, actorID, id, ActionUpdate)
	if err != nil {
		return nil, err
	}

	post.Title = input.Title
	post.Content = input.Content
	post.Public = input.Public
	if err := s.posts.Update(ctx, post); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrPostAlreadyExists
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) Delete(ctx context.Context, actorID, id int64) error {
	if _, err := s.authorize(ctx, actorID, id, ActionDelete); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	return nil
}

// authorize loads the post and applies Can. A missing post is reported
// before a permission failure.
func (s *postService) authorize(ctx context.Context, actorID, id int64, action Action) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if !Can(actorID, *post, action) {
		return nil, ErrForbidden
	}
	return post, nil
}

func (in PostInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("%w: content must not be empty", ErrValidation)
	}
	return nil
}
