package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	full_name TEXT NULL,
	disabled INTEGER NOT NULL DEFAULT 0,
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

const selectUser = `
SELECT id, username, email, full_name, disabled, password_hash, created_at
FROM users`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	user.CreatedAt = time.Now().UTC()

	var fullName sql.NullString
	if user.FullName != nil {
		fullName = sql.NullString{String: *user.FullName, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (username, email, full_name, disabled, password_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username,
		user.Email,
		fullName,
		user.Disabled,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert user %q: %w", user.Username, repository.ErrConflict)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+` WHERE username = ?`, username)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+` WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		user     domain.User
		fullName sql.NullString
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&fullName,
		&user.Disabled,
		&user.PasswordHash,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("scan user: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if fullName.Valid {
		user.FullName = &fullName.String
	}
	return &user, nil
}
