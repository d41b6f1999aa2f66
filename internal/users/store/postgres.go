package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists accounts in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, p CreateUserParams) (User, error) {
	role := p.Role
	if role == "" {
		role = "user"
	}
	id := uuid.New()

	const q = `INSERT INTO users (id, username, email, password_hash, profile_picture, role)
	           VALUES ($1, $2, $3, $4, $5, $6)
	           RETURNING id::text, username, email, password_hash, profile_picture, role, created_at`
	var u User
	err := s.pool.QueryRow(ctx, q, id, p.Username, p.Email, p.PasswordHash, p.ProfilePicture, role).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfilePicture, &u.Role, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return User{}, ErrEmailTaken
			}
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	const q = `SELECT id::text, username, email, password_hash, profile_picture, role, created_at
	           FROM users WHERE id = $1::uuid LIMIT 1`
	var u User
	err := s.pool.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfilePicture, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) GetPublic(ctx context.Context, id string) (PublicUser, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return PublicUser{}, err
	}
	return PublicUser{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture, JoinedAt: u.CreatedAt}, nil
}

func (s *PostgresStore) FindByLogin(ctx context.Context, login string) (User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return User{}, ErrNotFound
	}

	const q = `SELECT id::text, username, email, password_hash, profile_picture, role, created_at
	           FROM users
	           WHERE lower(email) = lower($1) OR lower(username) = lower($1)
	           LIMIT 1`
	var u User
	err := s.pool.QueryRow(ctx, q, login).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfilePicture, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, p UpdateProfileParams) (User, error) {
	const q = `UPDATE users
	           SET username = COALESCE($2, username),
	               profile_picture = COALESCE($3, profile_picture)
	           WHERE id = $1::uuid
	           RETURNING id::text, username, email, password_hash, profile_picture, role, created_at`
	var u User
	err := s.pool.QueryRow(ctx, q, id, p.Username, p.ProfilePicture).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfilePicture, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	return u, nil
}
