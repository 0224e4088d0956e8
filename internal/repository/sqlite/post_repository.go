package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	public INTEGER NOT NULL DEFAULT 1,
	fingerprint TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_posts_public ON posts(public, id);
CREATE INDEX IF NOT EXISTS idx_posts_owner_id ON posts(owner_id);
`

const selectPost = `
SELECT id, owner_id, title, content, public, created_at
FROM posts`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

// Init expects the users table to exist already.
func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	post.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO posts (owner_id, title, content, public, fingerprint, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		post.OwnerID,
		post.Title,
		post.Content,
		post.Public,
		post.Fingerprint(),
		post.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert post %q: %w", post.Title, repository.ErrConflict)
		}
		return 0, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}
	post.ID = id
	return id, nil
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, selectPost+` WHERE id = ?`, id)
	return scanPost(row)
}

func (r *PostRepository) List(ctx context.Context, filter repository.PostFilter) ([]domain.Post, error) {
	var (
		where []string
		args  []any
	)
	if filter.PublicOnly {
		where = append(where, "public = 1")
	}
	if filter.OwnerID != nil {
		where = append(where, "owner_id = ?")
		args = append(args, *filter.OwnerID)
	}

	query := selectPost
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"

	// sqlite needs a LIMIT clause for OFFSET; -1 means unbounded
	limit := -1
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE posts
SET title=?, content=?, public=?, fingerprint=?
WHERE id=?`,
		post.Title,
		post.Content,
		post.Public,
		post.Fingerprint(),
		post.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update post %d: %w", post.ID, repository.ErrConflict)
		}
		return fmt.Errorf("update post: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update post rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("update post %d: %w", post.ID, repository.ErrNotFound)
	}

	stored, err := r.Get(ctx, post.ID)
	if err != nil {
		return err
	}
	*post = *stored
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete post rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("delete post %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func scanPost(row scanner) (*domain.Post, error) {
	var post domain.Post
	if err := row.Scan(
		&post.ID,
		&post.OwnerID,
		&post.Title,
		&post.Content,
		&post.Public,
		&post.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("scan post: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &post, nil
}
