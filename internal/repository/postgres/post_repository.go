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

type postRecord struct {
	ID          int64     `gorm:"primaryKey"`
	OwnerID     int64     `gorm:"not null;index"`
	Title       string    `gorm:"not null"`
	Content     string    `gorm:"not null"`
	Public      bool      `gorm:"not null;index"`
	Fingerprint string    `gorm:"size:64;not null;uniqueIndex"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (postRecord) TableName() string { return "posts" }

func (rec postRecord) toDomain() domain.Post {
	return domain.Post{
		ID:        rec.ID,
		OwnerID:   rec.OwnerID,
		Title:     rec.Title,
		Content:   rec.Content,
		Public:    rec.Public,
		CreatedAt: rec.CreatedAt,
	}
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository with the given GORM DB instance.
func NewPostRepository(db *gorm.DB) repository.PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Init(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&postRecord{}); err != nil {
		return fmt.Errorf("migrate posts: %w", err)
	}
	return nil
}

func (r *postRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	rec := postRecord{
		OwnerID:     post.OwnerID,
		Title:       post.Title,
		Content:     post.Content,
		Public:      post.Public,
		Fingerprint: post.Fingerprint(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("failed to create post %q: %w", post.Title, repository.ErrConflict)
		}
		return 0, fmt.Errorf("failed to create post: %w", err)
	}
	post.ID = rec.ID
	post.CreatedAt = rec.CreatedAt
	return rec.ID, nil
}

func (r *postRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	var rec postRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post not found: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	post := rec.toDomain()
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter repository.PostFilter) ([]domain.Post, error) {
	query := r.db.WithContext(ctx).Model(&postRecord{})
	if filter.PublicOnly {
		query = query.Where("public = ?", true)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	query = query.Order("id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var recs []postRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	posts := make([]domain.Post, len(recs))
	for i := range recs {
		posts[i] = recs[i].toDomain()
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *domain.Post) error {
	result := r.db.WithContext(ctx).Model(&postRecord{}).Where("id = ?", post.ID).Updates(map[string]any{
		"title":       post.Title,
		"content":     post.Content,
		"public":      post.Public,
		"fingerprint": post.Fingerprint(),
	})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return fmt.Errorf("failed to update post %d: %w", post.ID, repository.ErrConflict)
		}
		return fmt.Errorf("failed to update post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("post not found: %w", repository.ErrNotFound)
	}

	stored, err := r.Get(ctx, post.ID)
	if err != nil {
		return err
	}
	*post = *stored
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&postRecord{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("post not found: %w", repository.ErrNotFound)
	}
	return nil
}
