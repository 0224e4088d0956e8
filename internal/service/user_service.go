package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"postboard/internal/auth"
	"postboard/internal/domain"
	"postboard/internal/repository"
)

// PasswordHasher hashes new passwords and checks presented ones.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username string
	Email    string
	FullName *string
	Disabled bool
	Password string
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	// EnsureUser registers input unless its username already exists and
	// reports whether a user was created.
	EnsureUser(ctx context.Context, input RegisterInput) (*domain.User, bool, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type userService struct {
	users  repository.UserRepository
	hasher PasswordHasher
}

func NewUserService(users repository.UserRepository, hasher PasswordHasher) UserService {
	return &userService{
		users:  users,
		hasher: hasher,
	}
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email is not a valid address", ErrValidation)
	}
	if input.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	if len(input.Password) > auth.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, auth.MaxPasswordBytes)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		FullName:     input.FullName,
		Disabled:     input.Disabled,
		PasswordHash: hash,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) EnsureUser(ctx context.Context, input RegisterInput) (*domain.User, bool, error) {
	existing, err := s.GetByUsername(ctx, input.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, err := s.Register(ctx, input)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// Authenticate checks a username/password pair. Unknown users, wrong
// passwords and disabled accounts all yield ErrInvalidCredentials.
func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	return &clean
}
