package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

type PostRepository struct {
	mu            sync.RWMutex
	nextID        int64
	posts         map[int64]domain.Post
	byFingerprint map[string]int64
}

func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts:         make(map[int64]domain.Post),
		byFingerprint: make(map[string]int64),
	}
}

func (r *PostRepository) Init(ctx context.Context) error {
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fp := post.Fingerprint()
	if _, taken := r.byFingerprint[fp]; taken {
		return 0, fmt.Errorf("post %q: %w", post.Title, repository.ErrConflict)
	}

	r.nextID++
	post.ID = r.nextID
	post.CreatedAt = time.Now().UTC()

	r.posts[post.ID] = *post
	r.byFingerprint[fp] = post.ID
	return post.ID, nil
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %d: %w", id, repository.ErrNotFound)
	}
	return &post, nil
}

func (r *PostRepository) List(ctx context.Context, filter repository.PostFilter) ([]domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]domain.Post, 0, len(r.posts))
	for _, post := range r.posts {
		if filter.PublicOnly && !post.Public {
			continue
		}
		if filter.OwnerID != nil && post.OwnerID != *filter.OwnerID {
			continue
		}
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })

	if filter.Offset > 0 {
		if filter.Offset >= len(posts) {
			return []domain.Post{}, nil
		}
		posts = posts[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(posts) {
		posts = posts[:filter.Limit]
	}
	return posts, nil
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.posts[post.ID]
	if !ok {
		return fmt.Errorf("post %d: %w", post.ID, repository.ErrNotFound)
	}

	oldFP := current.Fingerprint()
	newFP := post.Fingerprint()
	if owner, taken := r.byFingerprint[newFP]; taken && owner != post.ID {
		return fmt.Errorf("post %q: %w", post.Title, repository.ErrConflict)
	}

	// owner and creation time never change
	current.Title = post.Title
	current.Content = post.Content
	current.Public = post.Public
	r.posts[post.ID] = current

	delete(r.byFingerprint, oldFP)
	r.byFingerprint[newFP] = post.ID

	*post = current
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok {
		return fmt.Errorf("post %d: %w", id, repository.ErrNotFound)
	}
	delete(r.posts, id)
	delete(r.byFingerprint, post.Fingerprint())
	return nil
}

var _ repository.PostRepository = (*PostRepository)(nil)
