package service

import "errors"

var (
	// ErrValidation marks input rejected before it reaches storage.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrUnauthenticated indicates a missing, invalid, revoked or orphaned bearer token.
	ErrUnauthenticated = errors.New("could not validate credentials")
	// ErrUserAlreadyExists is returned when the username or email is taken.
	ErrUserAlreadyExists = errors.New("username or email already registered")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrPostAlreadyExists is returned when a post with the same title and content exists.
	ErrPostAlreadyExists = errors.New("a post with the same title and content already exists")
	// ErrPostNotFound is returned when no post has the requested id.
	ErrPostNotFound = errors.New("post not found")
	// ErrForbidden is returned when the actor may not perform the action on the post.
	ErrForbidden = errors.New("not enough permissions")
)
