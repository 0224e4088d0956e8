// Package memory keeps users and posts in process memory. Each repository
// serializes writes behind one mutex so a uniqueness check and the insert
// that follows it cannot interleave with another writer.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

type UserRepository struct {
	mu         sync.RWMutex
	nextID     int64
	users      []domain.User
	byID       map[int64]int
	byUsername map[string]int64
	byEmail    map[string]int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[int64]int),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
	}
}

func (r *UserRepository) Init(ctx context.Context) error {
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[user.Username]; taken {
		return 0, fmt.Errorf("username %q: %w", user.Username, repository.ErrConflict)
	}
	if _, taken := r.byEmail[user.Email]; taken {
		return 0, fmt.Errorf("email %q: %w", user.Email, repository.ErrConflict)
	}

	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now().UTC()

	r.byID[user.ID] = len(r.users)
	r.byUsername[user.Username] = user.ID
	r.byEmail[user.Email] = user.ID
	r.users = append(r.users, cloneUser(*user))
	return user.ID, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, repository.ErrNotFound)
	}
	return r.lookup(id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user with email %q: %w", email, repository.ErrNotFound)
	}
	return r.lookup(id)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(id)
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, len(r.users))
	for i := range r.users {
		users[i] = cloneUser(r.users[i])
	}
	return users, nil
}

// lookup expects r.mu to be held.
func (r *UserRepository) lookup(id int64) (*domain.User, error) {
	idx, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, repository.ErrNotFound)
	}
	user := cloneUser(r.users[idx])
	return &user, nil
}

func cloneUser(u domain.User) domain.User {
	if u.FullName != nil {
		name := *u.FullName
		u.FullName = &name
	}
	return u
}

var _ repository.UserRepository = (*UserRepository)(nil)
