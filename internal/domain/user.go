package domain

import "time"

// User represents an account that can authenticate and own posts.
type User struct {
	ID           int64
	Username     string
	Email        string
	FullName     *string
	Disabled     bool
	PasswordHash string
	CreatedAt    time.Time
}
