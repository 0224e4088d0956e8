package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

type userRecord struct {
	ID           int64     `gorm:"primaryKey"`
	Username     string    `gorm:"size:255;not null;uniqueIndex"`
	Email        string    `gorm:"size:320;not null;uniqueIndex"`
	FullName     *string   `gorm:"size:255"`
	Disabled     bool      `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userRecord) TableName() string { return "users" }

func (rec userRecord) toDomain() domain.User {
	return domain.User{
		ID:           rec.ID,
		Username:     rec.Username,
		Email:        rec.Email,
		FullName:     rec.FullName,
		Disabled:     rec.Disabled,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}
}

// userRepository implements repository.UserRepository using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository with the given GORM DB instance.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Init(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&userRecord{}); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	rec := userRecord{
		Username:     user.Username,
		Email:        user.Email,
		FullName:     user.FullName,
		Disabled:     user.Disabled,
		PasswordHash: user.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("failed to create user %q: %w", user.Username, repository.ErrConflict)
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = rec.ID
	user.CreatedAt = rec.CreatedAt
	return rec.ID, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	var recs []userRecord
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]domain.User, len(recs))
	for i := range recs {
		users[i] = recs[i].toDomain()
	}
	return users, nil
}

func (r *userRepository) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).Where(query, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user := rec.toDomain()
	return &user, nil
}
