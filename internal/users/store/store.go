package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

// User is the full account record. PasswordHash never leaves this package
// except through FindByLogin, and is never serialized.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	ProfilePicture string    `json:"profilePicture"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PublicUser is the projection exposed on profiles and review listings.
type PublicUser struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	ProfilePicture string    `json:"profilePicture"`
	JoinedAt       time.Time `json:"joinedAt"`
}

type CreateUserParams struct {
	Username       string
	Email          string
	PasswordHash   string
	ProfilePicture string
	Role           string
}

type UpdateProfileParams struct {
	Username       *string
	ProfilePicture *string
}

// Store defines account persistence. Username and email uniqueness is
// enforced at the storage level, not only by pre-checks.
type Store interface {
	Create(ctx context.Context, p CreateUserParams) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetPublic(ctx context.Context, id string) (PublicUser, error)
	FindByLogin(ctx context.Context, login string) (User, error)
	UpdateProfile(ctx context.Context, id string, p UpdateProfileParams) (User, error)
}
